package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)

	Log("hello %d", 1)
	LogTiming("x")()
	LogEnterExit("y")()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestEnabledWritesWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(true)
	defer SetEnabled(false)

	Log("loaded %d records", 3)
	LogIf(false, "skipped")
	LogTiming("ReadSnapshot")()

	out := buf.String()
	if !strings.Contains(out, "[BU_DEBUG] ") || !strings.Contains(out, "loaded 3 records") {
		t.Errorf("missing message: %q", out)
	}
	if strings.Contains(out, "skipped") {
		t.Error("LogIf(false) wrote output")
	}
	if !strings.Contains(out, "ReadSnapshot took") {
		t.Errorf("missing timing: %q", out)
	}
}
