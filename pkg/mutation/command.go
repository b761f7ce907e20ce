// Package mutation tracks commands sent to the external issue tool. It
// enforces at most one pending command per record and decides when a
// refresh has already made a command's effect visible.
package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/vanderheijden86/bu/pkg/model"
)

// Kind names a command.
type Kind int

const (
	KindCreate Kind = iota
	KindSetStatus
	KindSetLabels
	KindComment
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindSetStatus:
		return "set_status"
	case KindSetLabels:
		return "set_labels"
	case KindComment:
		return "comment"
	case KindUpdate:
		return "update"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Payload is the data entered in the record form.
type Payload struct {
	Title       string
	Type        model.RecordType
	Priority    int
	Description string
	Labels      []string
	// Parent, when set, attaches the new record under an existing one.
	Parent string
}

// Field marks which payload fields an update changes.
type Field uint8

const (
	FieldTitle Field = 1 << iota
	FieldDescription
	FieldType
	FieldPriority
)

// Has reports whether f includes x.
func (f Field) Has(x Field) bool { return f&x != 0 }

// Command is one request to the executor. Only the fields relevant to
// Kind are set.
type Command struct {
	Kind    Kind
	ID      string
	Payload Payload
	Status  model.Status
	Reason  string
	Add     []string
	Remove  []string
	Text    string
	// Fields lists the payload fields an update sends.
	Fields Field
}

// Create builds a creation command.
func Create(p Payload) Command {
	return Command{Kind: KindCreate, Payload: p}
}

// SetStatus builds a status transition. Reason is passed along when closing.
func SetStatus(id string, s model.Status, reason string) Command {
	return Command{Kind: KindSetStatus, ID: id, Status: s, Reason: reason}
}

// SetLabels builds a label diff.
func SetLabels(id string, add, remove []string) Command {
	return Command{Kind: KindSetLabels, ID: id, Add: add, Remove: remove}
}

// Update builds an edit of id. Only the payload fields named in fields are
// sent; add and remove carry the label diff.
func Update(id string, p Payload, fields Field, add, remove []string) Command {
	return Command{Kind: KindUpdate, ID: id, Payload: p, Fields: fields, Add: add, Remove: remove}
}

// Comment builds a comment command.
func Comment(id, text string) Command {
	return Command{Kind: KindComment, ID: id, Text: text}
}

// Describe returns a short human summary for notifications.
func (c Command) Describe() string {
	switch c.Kind {
	case KindCreate:
		return fmt.Sprintf("create %q", c.Payload.Title)
	case KindSetStatus:
		return fmt.Sprintf("%s -> %s", c.ID, c.Status)
	case KindSetLabels:
		var parts []string
		for _, l := range c.Add {
			parts = append(parts, "+"+l)
		}
		for _, l := range c.Remove {
			parts = append(parts, "-"+l)
		}
		return fmt.Sprintf("%s labels %s", c.ID, strings.Join(parts, " "))
	case KindComment:
		return fmt.Sprintf("comment on %s", c.ID)
	case KindUpdate:
		return fmt.Sprintf("edit %s", c.ID)
	}
	return c.Kind.String()
}

// Outcome is what the executor reports back.
type Outcome struct {
	OK      bool
	Message string
	// CreatedID is the new record's ID when the executor can tell.
	CreatedID string
}

// Failure builds a failed outcome.
func Failure(msg string) Outcome {
	return Outcome{Message: msg}
}

// Executor runs commands against the issue tool. Execute may block; callers
// run it off the event loop.
type Executor interface {
	Execute(ctx context.Context, cmd Command) Outcome
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cmd Command) Outcome

func (f ExecutorFunc) Execute(ctx context.Context, cmd Command) Outcome {
	return f(ctx, cmd)
}
