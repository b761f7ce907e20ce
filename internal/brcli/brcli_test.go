package brcli

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		name string
		cmd  mutation.Command
		want string
	}{
		{"start", mutation.SetStatus("bd-1", model.StatusInProgress, ""), "update bd-1 --status in_progress"},
		{"reopen", mutation.SetStatus("bd-1", model.StatusOpen, ""), "update bd-1 --status open"},
		{"close", mutation.SetStatus("bd-1", model.StatusClosed, ""), "close bd-1"},
		{"close with reason", mutation.SetStatus("bd-1", model.StatusClosed, "done"), "close bd-1 --reason=done"},
		{"labels", mutation.SetLabels("bd-2", []string{"ui"}, []string{"old"}), "update bd-2 --add-label=ui --remove-label=old"},
		{"comment", mutation.Comment("bd-3", "-looks fine"), "comments add bd-3 -- -looks fine"},
		{"edit title and priority", mutation.Update("bd-4",
			mutation.Payload{Title: "New title", Type: model.TypeBug, Priority: 0},
			mutation.FieldTitle|mutation.FieldPriority, nil, nil),
			"update bd-4 --title=New title --priority=0"},
		{"edit all", mutation.Update("bd-4",
			mutation.Payload{Title: "T", Description: "d", Type: model.TypeBug, Priority: 2},
			mutation.FieldTitle|mutation.FieldDescription|mutation.FieldType|mutation.FieldPriority,
			[]string{"ui"}, []string{"old"}),
			"update bd-4 --title=T --description=d --type=bug --priority=2 --add-label=ui --remove-label=old"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := Args(tt.cmd)
			if err != nil {
				t.Fatalf("Args: %v", err)
			}
			if got := strings.Join(args, " "); got != tt.want {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArgs_EmptyLabelDiff(t *testing.T) {
	if _, err := Args(mutation.SetLabels("bd-1", nil, nil)); err == nil {
		t.Error("expected error for empty label diff")
	}
}

func TestArgs_EmptyUpdate(t *testing.T) {
	if _, err := Args(mutation.Update("bd-1", mutation.Payload{Title: "x"}, 0, nil, nil)); err == nil {
		t.Error("expected error for update with no fields")
	}
}

func TestCreateArgs(t *testing.T) {
	got := CreateArgs(mutation.Payload{Title: "Fix login", Priority: 1, Description: "details"})
	want := []string{"create", "--title=Fix login", "--type", "task", "--priority", "1", "--description=details"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("CreateArgs = %q, want %q", got, want)
	}
}

func TestFollowUpArgs(t *testing.T) {
	steps := FollowUpArgs("bd-9", mutation.Payload{Parent: "bd-1", Labels: []string{"a", "b"}})
	if len(steps) != 2 {
		t.Fatalf("steps = %v", steps)
	}
	if got := strings.Join(steps[0], " "); got != "dep add bd-9 bd-1 --type parent-child" {
		t.Errorf("dep step = %q", got)
	}
	if got := strings.Join(steps[1], " "); got != "update bd-9 --add-label=a --add-label=b" {
		t.Errorf("label step = %q", got)
	}
	if steps := FollowUpArgs("bd-9", mutation.Payload{}); len(steps) != 0 {
		t.Errorf("expected no follow-ups, got %v", steps)
	}
}

func TestExtractCreatedID(t *testing.T) {
	tests := []struct {
		out, want string
	}{
		{"Created issue: bd-a1b2\n", "bd-a1b2"},
		{"✓ Created bd-x9: Fix login\n", "bd-x9"},
		{"Created: proj-12.3\n", "proj-12.3"},
		{"warning: something\nCreated issue: bd-77, priority 1\n", "bd-77"},
		{"nothing useful", ""},
		{"Created issue: ???", ""},
	}
	for _, tt := range tests {
		if got := ExtractCreatedID(tt.out); got != tt.want {
			t.Errorf("ExtractCreatedID(%q) = %q, want %q", tt.out, got, tt.want)
		}
	}
}

func TestUnavailable(t *testing.T) {
	c := New("definitely-not-a-real-br-binary")
	if c.Available() {
		t.Fatal("expected tool to be unavailable")
	}
	out := c.Execute(context.Background(), mutation.Comment("bd-1", "hi"))
	if out.OK || !strings.Contains(out.Message, "not found") {
		t.Errorf("outcome = %+v", out)
	}
}

// fakeBR writes a shell script that logs its arguments and mimics br's
// create output. FAKE_BR_FAIL makes it fail with a message on stderr.
func fakeBR(t *testing.T) (path, logFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	dir := t.TempDir()
	logFile = filepath.Join(dir, "calls.log")
	script := `#!/bin/sh
echo "$*" >> "` + logFile + `"
if [ -n "$FAKE_BR_FAIL" ]; then
  echo "$FAKE_BR_FAIL" >&2
  exit 1
fi
if [ "$1" = "create" ]; then
  echo "Created issue: bd-new1"
fi
`
	path = filepath.Join(dir, "br")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path, logFile
}

func readCalls(t *testing.T, logFile string) []string {
	t.Helper()
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestExecute_CreateRunsFollowUps(t *testing.T) {
	bin, logFile := fakeBR(t)
	c := New(bin, WithTimeout(5*time.Second))

	out := c.Execute(context.Background(), mutation.Create(mutation.Payload{
		Title:    "New thing",
		Type:     model.TypeBug,
		Priority: 2,
		Parent:   "bd-1",
		Labels:   []string{"ui"},
	}))
	if !out.OK || out.CreatedID != "bd-new1" {
		t.Fatalf("outcome = %+v", out)
	}

	calls := readCalls(t, logFile)
	want := []string{
		"create --title=New thing --type bug --priority 2",
		"dep add bd-new1 bd-1 --type parent-child",
		"update bd-new1 --add-label=ui",
	}
	if strings.Join(calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls = %q, want %q", calls, want)
	}
}

func TestExecute_Failure(t *testing.T) {
	bin, _ := fakeBR(t)
	t.Setenv("FAKE_BR_FAIL", "issue bd-404 not found")
	c := New(bin)

	out := c.Execute(context.Background(), mutation.SetStatus("bd-404", model.StatusInProgress, ""))
	if out.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.Message, "issue bd-404 not found") {
		t.Errorf("message = %q, want stderr text", out.Message)
	}
}

func TestExecute_WorkingDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	dir := t.TempDir()
	marker := filepath.Join(dir, "pwd.txt")
	script := "#!/bin/sh\npwd > \"" + marker + "\"\n"
	bin := filepath.Join(t.TempDir(), "br")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	out := New(bin, WithDir(dir)).Execute(context.Background(), mutation.Comment("bd-1", "x"))
	if !out.OK {
		t.Fatalf("outcome = %+v", out)
	}
	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(data)))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("ran in %q, want %q", got, want)
	}
}
