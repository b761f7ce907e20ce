package model

import "errors"

var (
	// ErrStoreUnavailable means a snapshot read failed; prior state is kept.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrDuplicateIdentifier marks two records sharing an ID in one snapshot.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrCyclicParentage marks a parent chain that loops back on itself.
	ErrCyclicParentage = errors.New("cyclic parentage")

	// ErrMutationRejected is returned synchronously when a record already
	// has a pending mutation, or the request is invalid.
	ErrMutationRejected = errors.New("mutation rejected")

	// ErrMutationFailed wraps a failure reported by the executor.
	ErrMutationFailed = errors.New("mutation failed")
)

// Warning is a non-fatal data problem surfaced to the user.
type Warning struct {
	Kind   error
	ID     string
	Detail string
}

func (w Warning) Error() string {
	if w.Detail == "" {
		return w.Kind.Error() + ": " + w.ID
	}
	return w.Kind.Error() + ": " + w.ID + " (" + w.Detail + ")"
}

func (w Warning) Unwrap() error { return w.Kind }
