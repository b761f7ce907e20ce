package mutation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vanderheijden86/bu/pkg/model"
)

// State is a ticket's lifecycle position.
type State int

const (
	Pending State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// createTarget keys creation tickets, so only one create is in flight.
const createTarget = "\x00create"

// Ticket tracks one command from request to result.
type Ticket struct {
	Seq     uint64
	Target  string
	Command Command
	State   State
	Reason  string
}

// IsCreate reports whether the ticket creates a record.
func (t Ticket) IsCreate() bool { return t.Target == createTarget }

// Coordinator issues tickets and enforces one pending ticket per record.
// It is not safe for concurrent use; the UI loop owns it.
type Coordinator struct {
	seq     uint64
	tickets map[uint64]*Ticket
	pending map[string]uint64
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		tickets: make(map[uint64]*Ticket),
		pending: make(map[string]uint64),
	}
}

func (c *Coordinator) issue(target string, cmd Command) (Ticket, error) {
	if seq, busy := c.pending[target]; busy {
		what := target
		if target == createTarget {
			what = "create"
		}
		return Ticket{}, fmt.Errorf("%w: %s busy (ticket %d)", model.ErrMutationRejected, what, seq)
	}
	c.seq++
	t := &Ticket{Seq: c.seq, Target: target, Command: cmd, State: Pending}
	c.tickets[t.Seq] = t
	c.pending[target] = t.Seq
	return *t, nil
}

// RequestStatusCycle issues a ticket moving rec to the next status in the
// open -> in_progress -> closed cycle.
func (c *Coordinator) RequestStatusCycle(rec model.Record) (Ticket, error) {
	return c.RequestStatus(rec, model.NextStatus(rec.Status), "")
}

// RequestStatus issues a ticket setting rec's status explicitly.
func (c *Coordinator) RequestStatus(rec model.Record, s model.Status, reason string) (Ticket, error) {
	if rec.ID == "" {
		return Ticket{}, fmt.Errorf("%w: no record selected", model.ErrMutationRejected)
	}
	return c.issue(rec.ID, SetStatus(rec.ID, s, reason))
}

func validPayload(p Payload) (Payload, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return p, fmt.Errorf("%w: title is required", model.ErrMutationRejected)
	}
	if p.Priority < model.MinPriority || p.Priority > model.MaxPriority {
		return p, fmt.Errorf("%w: priority must be %d-%d", model.ErrMutationRejected, model.MinPriority, model.MaxPriority)
	}
	if p.Type == "" {
		p.Type = model.TypeTask
	}
	p.Description = strings.TrimSpace(p.Description)
	p.Labels = model.NormalizeLabels(p.Labels)
	return p, nil
}

// RequestCreate validates p and issues a creation ticket. When idx is
// given, a parent it does not contain is rejected.
func (c *Coordinator) RequestCreate(p Payload, idx *model.Index) (Ticket, error) {
	p, err := validPayload(p)
	if err != nil {
		return Ticket{}, err
	}
	if p.Parent != "" && idx != nil && !idx.Has(p.Parent) {
		return Ticket{}, fmt.Errorf("%w: parent %s not found", model.ErrMutationRejected, p.Parent)
	}
	return c.issue(createTarget, Create(p))
}

// RequestUpdate issues an edit of rec carrying only what p changes. An
// edit that changes nothing is rejected.
func (c *Coordinator) RequestUpdate(rec model.Record, p Payload) (Ticket, error) {
	if rec.ID == "" {
		return Ticket{}, fmt.Errorf("%w: no record selected", model.ErrMutationRejected)
	}
	p, err := validPayload(p)
	if err != nil {
		return Ticket{}, err
	}
	p.Parent = ""

	var fields Field
	if p.Title != rec.Title {
		fields |= FieldTitle
	}
	if p.Description != strings.TrimSpace(rec.Description) {
		fields |= FieldDescription
	}
	if p.Type != rec.Type {
		fields |= FieldType
	}
	if p.Priority != rec.Priority {
		fields |= FieldPriority
	}
	add, remove := labelDiff(rec.Labels, p.Labels)
	if fields == 0 && len(add) == 0 && len(remove) == 0 {
		return Ticket{}, fmt.Errorf("%w: nothing changed", model.ErrMutationRejected)
	}
	return c.issue(rec.ID, Update(rec.ID, p, fields, add, remove))
}

func labelDiff(old, want []string) (add, remove []string) {
	for _, l := range want {
		if !slices.Contains(old, l) {
			add = append(add, l)
		}
	}
	for _, l := range old {
		if !slices.Contains(want, l) {
			remove = append(remove, l)
		}
	}
	return model.NormalizeLabels(add), model.NormalizeLabels(remove)
}

// RequestSetLabels issues a label diff for id. Empty diffs are rejected.
func (c *Coordinator) RequestSetLabels(id string, add, remove []string) (Ticket, error) {
	if id == "" {
		return Ticket{}, fmt.Errorf("%w: no record selected", model.ErrMutationRejected)
	}
	add, remove = model.NormalizeLabels(add), model.NormalizeLabels(remove)
	if len(add) == 0 && len(remove) == 0 {
		return Ticket{}, fmt.Errorf("%w: no label changes", model.ErrMutationRejected)
	}
	return c.issue(id, SetLabels(id, add, remove))
}

// RequestComment issues a comment on id.
func (c *Coordinator) RequestComment(id, text string) (Ticket, error) {
	if id == "" {
		return Ticket{}, fmt.Errorf("%w: no record selected", model.ErrMutationRejected)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Ticket{}, fmt.Errorf("%w: empty comment", model.ErrMutationRejected)
	}
	return c.issue(id, Comment(id, text))
}

// Resolve records the executor's outcome for seq. It returns the settled
// ticket and false when seq is unknown or was already settled, for
// example by Reconcile.
func (c *Coordinator) Resolve(seq uint64, out Outcome) (Ticket, bool) {
	t, ok := c.tickets[seq]
	if !ok || t.State != Pending {
		if ok {
			return *t, false
		}
		return Ticket{}, false
	}
	if out.OK {
		t.State = Succeeded
	} else {
		t.State = Failed
		t.Reason = out.Message
		if t.Reason == "" {
			t.Reason = "command failed"
		}
	}
	c.settle(t)
	return *t, true
}

func (c *Coordinator) settle(t *Ticket) {
	if c.pending[t.Target] == t.Seq {
		delete(c.pending, t.Target)
	}
}

// Reconcile marks pending tickets as succeeded when idx already shows
// their effect on the target record. Creates have no target yet and always
// wait for the executor. It returns the tickets it settled.
func (c *Coordinator) Reconcile(idx *model.Index) []Ticket {
	if idx == nil || len(c.pending) == 0 {
		return nil
	}
	var done []Ticket
	for _, seq := range c.pendingSeqs() {
		t := c.tickets[seq]
		if !observed(t, idx) {
			continue
		}
		t.State = Succeeded
		c.settle(t)
		done = append(done, *t)
	}
	return done
}

func observed(t *Ticket, idx *model.Index) bool {
	cmd := t.Command
	switch cmd.Kind {
	case KindSetStatus:
		r, ok := idx.Get(cmd.ID)
		return ok && r.Status == cmd.Status
	case KindSetLabels:
		r, ok := idx.Get(cmd.ID)
		return ok && labelsApplied(r, cmd)
	case KindUpdate:
		r, ok := idx.Get(cmd.ID)
		if !ok || !labelsApplied(r, cmd) {
			return false
		}
		p := cmd.Payload
		return (!cmd.Fields.Has(FieldTitle) || r.Title == p.Title) &&
			(!cmd.Fields.Has(FieldDescription) || strings.TrimSpace(r.Description) == p.Description) &&
			(!cmd.Fields.Has(FieldType) || r.Type == p.Type) &&
			(!cmd.Fields.Has(FieldPriority) || r.Priority == p.Priority)
	}
	// Comments are not part of the snapshot the list uses.
	return false
}

func labelsApplied(r *model.Record, cmd Command) bool {
	for _, l := range cmd.Add {
		if !r.HasLabel(l) {
			return false
		}
	}
	for _, l := range cmd.Remove {
		if r.HasLabel(l) {
			return false
		}
	}
	return true
}

func (c *Coordinator) pendingSeqs() []uint64 {
	seqs := make([]uint64, 0, len(c.pending))
	for _, s := range c.pending {
		seqs = append(seqs, s)
	}
	slices.Sort(seqs)
	return seqs
}

// Pending returns the pending ticket for id, if any.
func (c *Coordinator) Pending(id string) (Ticket, bool) {
	seq, ok := c.pending[id]
	if !ok {
		return Ticket{}, false
	}
	return *c.tickets[seq], true
}

// CreatePending reports whether a create is in flight.
func (c *Coordinator) CreatePending() bool {
	_, ok := c.pending[createTarget]
	return ok
}

// PendingCount is the number of in-flight tickets.
func (c *Coordinator) PendingCount() int {
	return len(c.pending)
}

// Ticket returns the ticket with the given sequence number.
func (c *Coordinator) Ticket(seq uint64) (Ticket, bool) {
	t, ok := c.tickets[seq]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

// Tickets returns every tracked ticket ordered by sequence.
func (c *Coordinator) Tickets() []Ticket {
	out := make([]Ticket, 0, len(c.tickets))
	for _, t := range c.tickets {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Ticket) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return out
}

// Prune forgets settled tickets once they have been reported. A late
// result for a pruned ticket is then reported as unknown by Resolve.
func (c *Coordinator) Prune() int {
	n := 0
	for seq, t := range c.tickets {
		if t.State != Pending {
			delete(c.tickets, seq)
			n++
		}
	}
	return n
}
