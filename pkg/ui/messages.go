package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/bu/internal/datasource"
	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
	"github.com/vanderheijden86/bu/pkg/watcher"
)

// snapshotMsg delivers a completed store read.
type snapshotMsg struct {
	Snapshot model.Snapshot
}

// snapshotErrMsg delivers a failed store read.
type snapshotErrMsg struct {
	Err error
}

// mutationResultMsg delivers the executor's outcome for a ticket.
type mutationResultMsg struct {
	Seq     uint64
	Outcome mutation.Outcome
}

// tickMsg fires the periodic refresh. Gen guards against duplicate timers
// after the interval changes.
type tickMsg struct {
	Gen int
}

// FileChangedMsg is sent when the watcher sees a store change.
type FileChangedMsg struct{}

// statusFadeMsg clears a transient status line.
type statusFadeMsg struct {
	Seq int
}

const statusFadeDelay = 4 * time.Second

// ReadSnapshotCmd reads the store off the event loop.
func ReadSnapshotCmd(r datasource.Reader) tea.Cmd {
	return func() tea.Msg {
		snap, err := r.ReadSnapshot(context.Background())
		if err != nil {
			return snapshotErrMsg{Err: err}
		}
		return snapshotMsg{Snapshot: snap}
	}
}

// ExecuteCmd runs a ticket's command. The executor applies its own
// timeout.
func ExecuteCmd(ex mutation.Executor, t mutation.Ticket) tea.Cmd {
	return func() tea.Msg {
		out := ex.Execute(context.Background(), t.Command)
		return mutationResultMsg{Seq: t.Seq, Outcome: out}
	}
}

// TickCmd schedules the next periodic refresh. A non-positive interval
// disables the timer.
func TickCmd(interval time.Duration, gen int) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{Gen: gen}
	})
}

// WatchFileCmd waits for the next change notification.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func fadeCmd(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}
