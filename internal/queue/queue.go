// Package queue hands build jobs from intake to workers and tracks the
// status of every deployment. The backing store is a durable FIFO list plus
// a key/value status map, both addressed by the literal deployment id.
package queue

import "context"

// Queue is the job handoff and status tracking contract. Pop blocks until a
// job is available or ctx is done; the blocking pop guarantees each job is
// claimed by exactly one worker, so workers need no further locking before
// the building transition.
type Queue interface {
	Push(ctx context.Context, id string) error
	Pop(ctx context.Context) (string, error)
	SetStatus(ctx context.Context, id, status string) error
	// GetStatus returns model.StatusUnknown for ids that were never
	// submitted; it does not return an error for them.
	GetStatus(ctx context.Context, id string) (string, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
