// Package brcli applies mutations by running the beads command-line tool.
package brcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/bu/pkg/debug"
	"github.com/vanderheijden86/bu/pkg/metrics"
	"github.com/vanderheijden86/bu/pkg/model"
	"github.com/vanderheijden86/bu/pkg/mutation"
)

// DefaultTimeout bounds one invocation when none is configured.
const DefaultTimeout = 30 * time.Second

// ErrUnavailable means the tool could not be found.
var ErrUnavailable = errors.New("issue tool not found")

// CLI runs br (or a compatible tool) to apply commands.
type CLI struct {
	command string
	path    string
	dir     string
	timeout time.Duration
	logger  *slog.Logger
	lookErr error
}

// Option configures a CLI.
type Option func(*CLI)

// WithDir sets the working directory the tool runs in, normally the
// repository containing .beads.
func WithDir(dir string) Option {
	return func(c *CLI) { c.dir = dir }
}

// WithTimeout bounds each invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *CLI) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for failed invocations.
func WithLogger(l *slog.Logger) Option {
	return func(c *CLI) { c.logger = l }
}

// New resolves command on PATH. A missing tool is not an error here;
// every Execute then fails with a message saying so.
func New(command string, opts ...Option) *CLI {
	if command == "" {
		command = "br"
	}
	c := &CLI{
		command: command,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		c.lookErr = fmt.Errorf("%w: %s: %v", ErrUnavailable, command, err)
	} else {
		c.path = path
	}
	return c
}

// Available reports whether the tool was found.
func (c *CLI) Available() bool { return c.lookErr == nil }

// Execute runs cmd. It blocks until the tool exits or the timeout passes.
func (c *CLI) Execute(ctx context.Context, cmd mutation.Command) mutation.Outcome {
	if c.lookErr != nil {
		return mutation.Failure(c.lookErr.Error())
	}
	defer metrics.Timer(metrics.MutationExec)()
	debug.Dump("execute", cmd)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if cmd.Kind == mutation.KindCreate {
		return c.create(ctx, cmd.Payload)
	}
	args, err := Args(cmd)
	if err != nil {
		return mutation.Failure(err.Error())
	}
	if _, err := c.run(ctx, args); err != nil {
		return mutation.Failure(err.Error())
	}
	return mutation.Outcome{OK: true, Message: cmd.Describe()}
}

// create runs the create call then links the parent and adds labels, which
// br only accepts as separate invocations.
func (c *CLI) create(ctx context.Context, p mutation.Payload) mutation.Outcome {
	out, err := c.run(ctx, CreateArgs(p))
	if err != nil {
		return mutation.Failure(err.Error())
	}
	id := ExtractCreatedID(out)
	if id == "" {
		return mutation.Outcome{OK: true, Message: "created " + strconv.Quote(p.Title)}
	}

	var problems []string
	for _, args := range FollowUpArgs(id, p) {
		if _, err := c.run(ctx, args); err != nil {
			problems = append(problems, err.Error())
		}
	}
	msg := "created " + id
	if len(problems) > 0 {
		msg += " (" + strings.Join(problems, "; ") + ")"
	}
	return mutation.Outcome{OK: true, Message: msg, CreatedID: id}
}

func (c *CLI) run(ctx context.Context, args []string) (string, error) {
	defer debug.LogTiming(c.command + " " + args[0])()

	ex := exec.CommandContext(ctx, c.path, args...)
	ex.Dir = c.dir
	var stdout, stderr bytes.Buffer
	ex.Stdout = &stdout
	ex.Stderr = &stderr

	if err := ex.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		c.logger.Warn("issue tool failed", "command", c.command, "args", args, "err", err, "stderr", msg)
		if msg == "" {
			return "", fmt.Errorf("%s %s: %w", c.command, args[0], err)
		}
		return "", fmt.Errorf("%s %s: %s", c.command, args[0], firstLine(msg))
	}
	return stdout.String(), nil
}

// Args builds the argument list for a non-create command.
func Args(cmd mutation.Command) ([]string, error) {
	switch cmd.Kind {
	case mutation.KindCreate:
		return CreateArgs(cmd.Payload), nil
	case mutation.KindSetStatus:
		if cmd.Status == model.StatusClosed {
			args := []string{"close", cmd.ID}
			if cmd.Reason != "" {
				args = append(args, "--reason="+cmd.Reason)
			}
			return args, nil
		}
		return []string{"update", cmd.ID, "--status", string(cmd.Status)}, nil
	case mutation.KindSetLabels:
		if len(cmd.Add)+len(cmd.Remove) == 0 {
			return nil, fmt.Errorf("%w: no label changes", model.ErrMutationRejected)
		}
		args := []string{"update", cmd.ID}
		for _, l := range cmd.Add {
			args = append(args, "--add-label="+l)
		}
		for _, l := range cmd.Remove {
			args = append(args, "--remove-label="+l)
		}
		return args, nil
	case mutation.KindComment:
		return []string{"comments", "add", cmd.ID, "--", cmd.Text}, nil
	case mutation.KindUpdate:
		return UpdateArgs(cmd)
	}
	return nil, fmt.Errorf("%w: unknown command %s", model.ErrMutationRejected, cmd.Kind)
}

// UpdateArgs builds a single update invocation carrying the changed
// fields and the label diff.
func UpdateArgs(cmd mutation.Command) ([]string, error) {
	p := cmd.Payload
	args := []string{"update", cmd.ID}
	if cmd.Fields.Has(mutation.FieldTitle) {
		args = append(args, "--title="+p.Title)
	}
	if cmd.Fields.Has(mutation.FieldDescription) {
		args = append(args, "--description="+p.Description)
	}
	if cmd.Fields.Has(mutation.FieldType) {
		args = append(args, "--type="+string(p.Type))
	}
	if cmd.Fields.Has(mutation.FieldPriority) {
		args = append(args, "--priority="+strconv.Itoa(p.Priority))
	}
	for _, l := range cmd.Add {
		args = append(args, "--add-label="+l)
	}
	for _, l := range cmd.Remove {
		args = append(args, "--remove-label="+l)
	}
	if len(args) == 2 {
		return nil, fmt.Errorf("%w: nothing to update on %s", model.ErrMutationRejected, cmd.ID)
	}
	return args, nil
}

// CreateArgs builds the create invocation.
func CreateArgs(p mutation.Payload) []string {
	typ := p.Type
	if typ == "" {
		typ = model.TypeTask
	}
	args := []string{
		"create",
		"--title=" + p.Title,
		"--type", string(typ),
		"--priority", strconv.Itoa(p.Priority),
	}
	if p.Description != "" {
		args = append(args, "--description="+p.Description)
	}
	return args
}

// FollowUpArgs lists the invocations that finish a create once the new ID
// is known.
func FollowUpArgs(id string, p mutation.Payload) [][]string {
	var steps [][]string
	if p.Parent != "" {
		steps = append(steps, []string{"dep", "add", id, p.Parent, "--type", string(model.DepParentChild)})
	}
	if len(p.Labels) > 0 {
		args := []string{"update", id}
		for _, l := range p.Labels {
			args = append(args, "--add-label="+l)
		}
		steps = append(steps, args)
	}
	return steps
}

var idPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*-[A-Za-z0-9][A-Za-z0-9.]*$`)

// ExtractCreatedID finds the new record's ID in create output such as
// "Created issue: bd-a1b2" or "✓ Created bd-a1b2: Title".
func ExtractCreatedID(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Created") {
			continue
		}
		after := line[strings.Index(line, "Created")+len("Created"):]
		for _, word := range strings.Fields(after) {
			word = strings.TrimRight(word, ",:.")
			if word == "issue" {
				continue
			}
			if idPattern.MatchString(word) {
				return word
			}
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
