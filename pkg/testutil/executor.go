package testutil

import (
	"context"
	"sync"

	"github.com/vanderheijden86/bu/pkg/mutation"
)

// Recorder is a mutation.Executor that records every command and replies
// with scripted outcomes. Unscripted commands succeed.
type Recorder struct {
	mu       sync.Mutex
	calls    []mutation.Command
	outcomes []mutation.Outcome
	gate     chan struct{}
}

// NewRecorder returns a recorder that replies with outcomes in order.
func NewRecorder(outcomes ...mutation.Outcome) *Recorder {
	return &Recorder{outcomes: outcomes}
}

// Hold makes Execute block until Release is called or ctx ends.
func (r *Recorder) Hold() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
}

// Release unblocks held calls.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
}

// Execute implements mutation.Executor.
func (r *Recorder) Execute(ctx context.Context, cmd mutation.Command) mutation.Outcome {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	gate := r.gate
	out := mutation.Outcome{OK: true, Message: cmd.Describe()}
	if len(r.outcomes) > 0 {
		out = r.outcomes[0]
		r.outcomes = r.outcomes[1:]
	}
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return mutation.Failure(ctx.Err().Error())
		}
	}
	return out
}

// Calls returns a copy of the recorded commands.
func (r *Recorder) Calls() []mutation.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mutation.Command(nil), r.calls...)
}
