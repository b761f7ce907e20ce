package ui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
)

// logRecordMsg carries a slog record into the model for the status bar.
type logRecordMsg struct {
	// Summary is the one-line "message (key=value, ...)" form.
	Summary string
	// Structured is the full record as JSON.
	Structured string
	Level      slog.Level
}

// logRecordFadeMsg clears a log line from the status bar. Seq matches the
// record it was scheduled for, so a newer record is not cleared early.
type logRecordFadeMsg struct{ Seq int }

const logRecordFadeDelay = 5 * time.Second

// messageSender is the part of *tea.Program the handler needs.
type messageSender interface {
	Send(msg tea.Msg)
}

// TUILogHandler is a slog.Handler that routes records into the running
// program as logRecordMsg. Records arriving before SetProgram are dropped.
//
// Handlers derived with WithAttrs/WithGroup share the program pointer, so
// one SetProgram call on the root reaches all of them.
type TUILogHandler struct {
	level   slog.Level
	program *atomic.Pointer[messageSender]
	attrs   []slog.Attr
	groups  []string
}

// NewTUILogHandler creates a handler for records at or above level.
func NewTUILogHandler(level slog.Level) *TUILogHandler {
	return &TUILogHandler{
		level:   level,
		program: &atomic.Pointer[messageSender]{},
	}
}

// SetProgram sets the program that receives log messages. Safe to call
// from any goroutine.
func (h *TUILogHandler) SetProgram(p *tea.Program) {
	h.setSender(p)
}

func (h *TUILogHandler) setSender(s messageSender) {
	h.program.Store(&s)
}

func (h *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *TUILogHandler) Handle(_ context.Context, record slog.Record) error {
	p := h.program.Load()
	if p == nil {
		return nil
	}

	var parts []string
	for _, a := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Key, a.Value))
	}
	record.Attrs(func(a slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%s", h.key(a.Key), a.Value))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	(*p).Send(logRecordMsg{
		Summary:    summary,
		Structured: h.structured(record),
		Level:      record.Level,
	})
	return nil
}

func (h *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	qualified := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		qualified[i] = slog.Attr{Key: h.key(a.Key), Value: a.Value}
	}
	return &TUILogHandler{
		level:   h.level,
		program: h.program,
		attrs:   append(slices.Clone(h.attrs), qualified...),
		groups:  slices.Clone(h.groups),
	}
}

func (h *TUILogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TUILogHandler{
		level:   h.level,
		program: h.program,
		attrs:   slices.Clone(h.attrs),
		groups:  append(slices.Clone(h.groups), name),
	}
}

// key qualifies an attribute key with the open groups.
func (h *TUILogHandler) key(k string) string {
	if len(h.groups) == 0 {
		return k
	}
	return strings.Join(h.groups, ".") + "." + k
}

func (h *TUILogHandler) structured(record slog.Record) string {
	fields := map[string]any{
		"time":  record.Time.Format(time.RFC3339),
		"level": record.Level.String(),
		"msg":   record.Message,
	}
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.String()
	}
	record.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = a.Value.String()
		return true
	})

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf(`{"msg":%q,"error":"marshal failed"}`, record.Message)
	}
	return string(data)
}
