// Package tui provides the Bubble Tea training progress view for goalcast.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/goalcast/internal/cli"
	"github.com/theirongolddev/goalcast/internal/dataset"
	"github.com/theirongolddev/goalcast/internal/forecast"
	"github.com/theirongolddev/goalcast/internal/nn"
	"github.com/theirongolddev/goalcast/internal/tui/components"
	"github.com/theirongolddev/goalcast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// EpochMsg reports one finished epoch.
type EpochMsg struct {
	Logs nn.EpochLogs
}

// TrainDoneMsg is sent when the training goroutine returns.
type TrainDoneMsg struct {
	Result forecast.TrainResult
	Err    error
}

// App is the root Bubble Tea model.
type App struct {
	total   int
	epochs  []nn.EpochLogs
	started time.Time

	done     bool
	stopping bool
	result   forecast.TrainResult
	err      error

	width   int
	spinner spinner.Model
	sub     chan tea.Msg // epoch + completion messages from the training goroutine
	stop    func()
	start   tea.Cmd
}

const (
	defaultWidth = 80
	maxWidth     = 120
	sparkWidth   = 60
)

// NewApp creates the view for a run of up to totalEpochs epochs. stop is
// called when the user quits before training ends.
func NewApp(totalEpochs int, sub chan tea.Msg, stop func()) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		total:   totalEpochs,
		started: time.Now(),
		width:   defaultWidth,
		spinner: sp,
		sub:     sub,
		stop:    stop,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick}
	if a.start != nil {
		cmds = append(cmds, a.start)
	} else {
		cmds = append(cmds, waitForTrainMsg(a.sub))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if a.done {
				return a, tea.Quit
			}
			// Training finishes its current epoch, then TrainDoneMsg quits.
			a.stopping = true
			if a.stop != nil {
				a.stop()
			}
		}
		return a, nil

	case EpochMsg:
		a.epochs = append(a.epochs, msg.Logs)
		return a, waitForTrainMsg(a.sub)

	case TrainDoneMsg:
		a.done = true
		a.result = msg.Result
		a.err = msg.Err
		return a, tea.Quit

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

// View implements tea.Model.
func (a App) View() string {
	t := theme.Active
	w := a.width
	if w > maxWidth {
		w = maxWidth
	}

	var b strings.Builder
	b.WriteString(cli.RenderTitle("goalcast training"))
	b.WriteString("\n\n")

	last, ok := a.last()
	if !ok && a.done {
		b.WriteString(a.summary())
		b.WriteString("\n")
		return b.String()
	}
	if !ok {
		b.WriteString(a.spinner.View())
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(" Waiting for the first epoch..."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(components.EpochBar(last.Epoch, a.total, w))
	b.WriteString("\n")

	accStyle := lipgloss.NewStyle().Foreground(components.ColorForAccuracy(last.ValGoalAccuracy)).Bold(true)
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Loss", Value: cli.FormatLoss(last.Loss), Delta: "val " + cli.FormatLoss(last.ValLoss)},
		{Label: "Months MAE", Value: fmt.Sprintf("%.2f", last.MonthsMAE), Delta: fmt.Sprintf("val %.2f", last.ValMonthsMAE)},
		{Label: "Val goal acc", Value: accStyle.Render(cli.FormatPercent(last.ValGoalAccuracy)), Delta: "best " + cli.FormatPercent(a.bestAccuracy())},
		{Label: "Learning rate", Value: fmt.Sprintf("%g", last.LearningRate)},
	}, w))
	b.WriteString("\n")

	hist := nn.History{Epochs: a.epochs}
	chart := "train " + components.Sparkline(hist.Series(nn.MetricLoss), sparkWidth, t.Blue) + "\n" +
		"val   " + components.Sparkline(hist.Series(nn.MetricValLoss), sparkWidth, t.Orange)
	b.WriteString(components.ContentCard("Loss", chart, w))
	b.WriteString("\n")

	if a.done {
		b.WriteString(a.summary())
		b.WriteString("\n")
	}

	status := "[q] stop"
	if a.stopping && !a.done {
		status = "stopping after this epoch..."
	}
	b.WriteString(components.RenderStatusBar(w, status, cli.FormatDuration(time.Since(a.started))+" "))
	return b.String()
}

func (a App) summary() string {
	if a.err != nil {
		return cli.RenderWarning("training failed: " + a.err.Error())
	}
	return fmt.Sprintf("Best %s %s at epoch %d, saved to %s",
		nn.MetricValGoalAccuracy, cli.FormatPercent(a.result.BestValGoalAcc), a.result.BestEpoch, a.result.CheckpointPath)
}

func (a App) last() (nn.EpochLogs, bool) {
	return nn.History{Epochs: a.epochs}.Last()
}

func (a App) bestAccuracy() float64 {
	best := 0.0
	for _, e := range a.epochs {
		if e.ValGoalAccuracy > best {
			best = e.ValGoalAccuracy
		}
	}
	return best
}

// Result returns the training outcome once TrainDoneMsg has arrived.
func (a App) Result() (forecast.TrainResult, error) {
	if !a.done {
		return a.result, errors.New("tui: training did not finish")
	}
	return a.result, a.err
}

// trainCmd starts training in a background goroutine. It streams EpochMsg
// updates and a final TrainDoneMsg through sub.
func trainCmd(ctx context.Context, tr *forecast.Trainer, ds dataset.Dataset, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			res, err := tr.Train(ctx, ds)
			sub <- TrainDoneMsg{Result: res, Err: err}
		}()

		// Block until the first message (either EpochMsg or TrainDoneMsg)
		return <-sub
	}
}

// waitForTrainMsg blocks until the next message arrives from the training goroutine.
func waitForTrainMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// epochStreamer forwards every epoch to sub. The send gives up when ctx is
// cancelled so a quit view cannot wedge training.
func epochStreamer(ctx context.Context, sub chan tea.Msg) nn.Monitor {
	return nn.EpochFunc(func(l nn.EpochLogs) {
		select {
		case sub <- EpochMsg{Logs: l}:
		case <-ctx.Done():
		}
	})
}

// Run trains with a live progress view and returns the training result.
// Quitting the view stops training after the current epoch; the run keeps
// its artifacts. The trainer is not modified.
func Run(ctx context.Context, tr forecast.Trainer, ds dataset.Dataset) (forecast.TrainResult, error) {
	pinColorProfile()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := make(chan tea.Msg, 1)
	req := &nn.StopRequest{}
	tr.Monitors = append(append([]nn.Monitor(nil), tr.Monitors...), epochStreamer(ctx, sub), req)

	app := NewApp(tr.Cfg.Training.Epochs, sub, req.Request)
	app.start = trainCmd(ctx, &tr, ds, sub)

	final, err := tea.NewProgram(app).Run()
	if err != nil {
		return forecast.TrainResult{}, fmt.Errorf("running training view: %w", err)
	}
	return final.(App).Result()
}

// pinColorProfile drops to plain ASCII when NO_COLOR is set.
func pinColorProfile() {
	if os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		theme.SetActive(theme.Terminal.Name)
	}
}
