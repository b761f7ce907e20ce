package ui

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *captureSender) Send(msg tea.Msg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureSender) records() []logRecordMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logRecordMsg
	for _, m := range c.msgs {
		if r, ok := m.(logRecordMsg); ok {
			out = append(out, r)
		}
	}
	return out
}

func TestTUILogHandlerDropsBeforeProgram(t *testing.T) {
	h := NewTUILogHandler(slog.LevelWarn)
	logger := slog.New(h)
	logger.Warn("early")

	c := &captureSender{}
	h.setSender(c)
	logger.Warn("late")
	if got := c.records(); len(got) != 1 || got[0].Summary != "late" {
		t.Errorf("records = %+v", got)
	}
}

func TestTUILogHandlerLevel(t *testing.T) {
	h := NewTUILogHandler(slog.LevelWarn)
	c := &captureSender{}
	h.setSender(c)
	logger := slog.New(h)

	logger.Info("quiet")
	logger.Error("loud", "code", 7)

	got := c.records()
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	if got[0].Summary != "loud (code=7)" {
		t.Errorf("summary = %q", got[0].Summary)
	}
	if got[0].Level != slog.LevelError {
		t.Errorf("level = %v", got[0].Level)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(got[0].Structured), &fields); err != nil {
		t.Fatalf("structured is not JSON: %v", err)
	}
	if fields["msg"] != "loud" || fields["code"] != "7" {
		t.Errorf("fields = %v", fields)
	}
}

func TestTUILogHandlerDerivedShareProgram(t *testing.T) {
	root := NewTUILogHandler(slog.LevelWarn)
	derived := slog.New(root).With("component", "watcher").WithGroup("poll")

	c := &captureSender{}
	root.setSender(c)
	derived.Warn("fallback", "interval", "2s")

	got := c.records()
	if len(got) != 1 {
		t.Fatalf("records = %d", len(got))
	}
	for _, want := range []string{"component=watcher", "poll.interval=2s"} {
		if !strings.Contains(got[0].Summary, want) {
			t.Errorf("summary %q missing %q", got[0].Summary, want)
		}
	}
}

func TestTUILogHandlerEnabled(t *testing.T) {
	h := NewTUILogHandler(slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled")
	}
}
