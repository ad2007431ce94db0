package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/theirongolddev/goalcast/internal/forecast"
	"github.com/theirongolddev/goalcast/internal/nn"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func epoch(n int, valAcc float64) EpochMsg {
	return EpochMsg{Logs: nn.EpochLogs{
		Epoch: n, Loss: 3.2 / float64(n), ValLoss: 3.4 / float64(n),
		MonthsMAE: 4, ValMonthsMAE: 4.5, ValGoalAccuracy: valAcc, LearningRate: 0.001,
	}}
}

func TestAppStreamsEpochs(t *testing.T) {
	sub := make(chan tea.Msg, 1)
	a := NewApp(80, sub, nil)

	if !strings.Contains(a.View(), "Waiting for the first epoch") {
		t.Errorf("initial view should be waiting:\n%s", a.View())
	}

	m, cmd := a.Update(epoch(1, 0.8))
	a = m.(App)
	if cmd == nil {
		t.Fatal("EpochMsg should re-subscribe to the training channel")
	}
	m, _ = a.Update(epoch(2, 0.85))
	a = m.(App)

	if len(a.epochs) != 2 {
		t.Fatalf("got %d epochs, want 2", len(a.epochs))
	}
	if got := a.bestAccuracy(); got != 0.85 {
		t.Errorf("bestAccuracy = %g, want 0.85", got)
	}
	view := a.View()
	for _, want := range []string{"Epoch 2/80", "85.00%", "Loss", "Learning rate"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if _, err := a.Result(); err == nil {
		t.Error("Result before TrainDoneMsg should fail")
	}
}

func TestAppFinishes(t *testing.T) {
	a := NewApp(5, make(chan tea.Msg, 1), nil)
	m, _ := a.Update(epoch(1, 0.9))
	a = m.(App)

	res := forecast.TrainResult{CheckpointPath: "outputs/models/best_model_x.gcm", BestEpoch: 1, BestValGoalAcc: 0.9}
	m, cmd := a.Update(TrainDoneMsg{Result: res})
	a = m.(App)
	if cmd == nil {
		t.Fatal("TrainDoneMsg should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("TrainDoneMsg command is not tea.Quit")
	}

	got, err := a.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if got.CheckpointPath != res.CheckpointPath {
		t.Errorf("Result().CheckpointPath = %q", got.CheckpointPath)
	}
	if !strings.Contains(a.View(), "best_model_x.gcm") {
		t.Errorf("summary missing checkpoint:\n%s", a.View())
	}
}

func TestAppQuitRequestsStop(t *testing.T) {
	req := &nn.StopRequest{}
	a := NewApp(5, make(chan tea.Msg, 1), req.Request)

	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	a = m.(App)
	if cmd != nil {
		t.Error("view should wait for TrainDoneMsg before quitting")
	}
	if !a.stopping {
		t.Error("app should be marked stopping")
	}

	s := &nn.FitState{}
	if err := req.OnEpochEnd(s, nn.EpochLogs{Epoch: 1}); err != nil {
		t.Fatal(err)
	}
	if !s.Stopping() {
		t.Error("quit should stop the fit at the epoch boundary")
	}

	res := forecast.TrainResult{CheckpointPath: "outputs/models/best_model_x.gcm", BestEpoch: 1}
	m, _ = a.Update(TrainDoneMsg{Result: res})
	a = m.(App)
	got, err := a.Result()
	if err != nil {
		t.Fatalf("stopped run should keep its result: %v", err)
	}
	if got.CheckpointPath != res.CheckpointPath {
		t.Errorf("Result().CheckpointPath = %q", got.CheckpointPath)
	}
}

func TestAppReportsTrainingFailure(t *testing.T) {
	a := NewApp(5, make(chan tea.Msg, 1), nil)
	m, _ := a.Update(TrainDoneMsg{Err: context.Canceled})
	a = m.(App)
	if _, err := a.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("Result err = %v, want context.Canceled", err)
	}
	if !strings.Contains(a.View(), "training failed") {
		t.Errorf("view should report the failure:\n%s", a.View())
	}
}

func TestEpochStreamerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := make(chan tea.Msg) // unbuffered, nobody reading
	mon := epochStreamer(ctx, sub)

	cancel()
	// Must not block.
	if err := mon.OnEpochEnd(&nn.FitState{}, nn.EpochLogs{Epoch: 1}); err != nil {
		t.Fatalf("OnEpochEnd: %v", err)
	}
}
