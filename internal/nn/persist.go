package nn

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrCorruptCheckpoint is returned when a checkpoint cannot be mapped back
// onto a network.
var ErrCorruptCheckpoint = errors.New("nn: corrupt checkpoint")

const checkpointFormat = "goalcast.nn/v1"

type checkpointFile struct {
	Format       string       `json:"format"`
	Architecture Architecture `json:"architecture"`
	Params       []savedParam `json:"params"`
}

type savedParam struct {
	Name   string    `json:"name"`
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Values []float64 `json:"values"`
}

// WriteWeights writes the network's architecture and weights to w as gzip
// compressed JSON.
func WriteWeights(net *Network, w io.Writer) error {
	file := checkpointFile{Format: checkpointFormat, Architecture: net.Architecture()}
	for _, p := range net.Params() {
		file.Params = append(file.Params, savedParam{Name: p.Name, Rows: p.Rows, Cols: p.Cols, Values: p.Value})
	}

	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(file); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return zw.Close()
}

// ReadWeights rebuilds a network from a stream written by WriteWeights.
func ReadWeights(r io.Reader) (*Network, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	defer zr.Close()

	var file checkpointFile
	if err := json.NewDecoder(zr).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if file.Format != checkpointFormat {
		return nil, fmt.Errorf("%w: format %q", ErrCorruptCheckpoint, file.Format)
	}

	net, err := NewNetwork(file.Architecture, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}

	saved := make(map[string]savedParam, len(file.Params))
	for _, sp := range file.Params {
		saved[sp.Name] = sp
	}
	for _, p := range net.Params() {
		sp, ok := saved[p.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrCorruptCheckpoint, p.Name)
		}
		if sp.Rows != p.Rows || sp.Cols != p.Cols || len(sp.Values) != len(p.Value) {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrCorruptCheckpoint, p.Name, sp.Rows, sp.Cols, p.Rows, p.Cols)
		}
		copy(p.Value, sp.Values)
	}
	return net, nil
}

// Save writes the network to path. The file is written next to path and
// renamed into place, so readers never see a partial checkpoint.
func Save(net *Network, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := WriteWeights(net, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*Network, error) {
	f, err := os.Open(path) //nolint:gosec // checkpoint path chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}
	defer f.Close()

	net, err := ReadWeights(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return net, nil
}
