package metrics

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(3 * time.Millisecond)
	m.Record(1 * time.Millisecond)
	m.Record(2 * time.Millisecond)

	s := m.Stats()
	if s.Count != 3 {
		t.Errorf("count = %d, want 3", s.Count)
	}
	if s.Min != time.Millisecond || s.Max != 3*time.Millisecond {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.Avg != 2*time.Millisecond || s.Total != 6*time.Millisecond {
		t.Errorf("avg/total = %v/%v", s.Avg, s.Total)
	}

	m.Reset()
	if m.Count() != 0 || m.Stats().Max != 0 {
		t.Errorf("reset left %+v", m.Stats())
	}
}

func TestTimingMetricConcurrent(t *testing.T) {
	m := newTimingMetric("concurrent")
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.Record(d)
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	s := m.Stats()
	if s.Count != 50 || s.Min != time.Microsecond || s.Max != 50*time.Microsecond {
		t.Errorf("stats = %+v", s)
	}
}

func TestDisabledSkipsRecording(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(false)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Second)
	if m.Count() != 0 {
		t.Errorf("count = %d while disabled", m.Count())
	}
}

func TestTimerWithCallback(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)

	m := newTimingMetric("cb")
	var got time.Duration
	called := false
	TimerWithCallback(m, func(d time.Duration) {
		called = true
		got = d
	})()
	if !called || got < 0 || m.Count() != 1 {
		t.Errorf("called=%v d=%v count=%d", called, got, m.Count())
	}
	if Timer(nil) == nil {
		t.Error("Timer(nil) returned nil func")
	}
}

func TestLogAllSkipsEmpty(t *testing.T) {
	defer SetEnabled(Enabled())
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	SnapshotRead.Record(5 * time.Millisecond)

	var buf bytes.Buffer
	LogAll(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	out := buf.String()
	if !strings.Contains(out, "snapshot_read.count=1") {
		t.Errorf("missing snapshot_read: %q", out)
	}
	if strings.Contains(out, "tree_build") {
		t.Errorf("empty metric logged: %q", out)
	}
	if n := len(AllTimingStats()); n != 1 {
		t.Errorf("AllTimingStats len = %d, want 1", n)
	}
}
