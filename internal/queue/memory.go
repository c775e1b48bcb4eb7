package queue

import (
	"context"
	"sync"

	"github.com/edvin/shipstatic/internal/model"
)

// Memory is a channel-backed Queue for tests and local development. The
// channel gives the same single-claim blocking-pop semantics as BRPOP.
type Memory struct {
	jobs chan string

	mu       sync.RWMutex
	statuses map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		jobs:     make(chan string, 1024),
		statuses: make(map[string]string),
	}
}

func (q *Memory) Push(ctx context.Context, id string) error {
	select {
	case q.jobs <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Memory) Pop(ctx context.Context) (string, error) {
	select {
	case id := <-q.jobs:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *Memory) SetStatus(ctx context.Context, id, status string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.statuses[id] = status
	return nil
}

func (q *Memory) GetStatus(ctx context.Context, id string) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	status, ok := q.statuses[id]
	if !ok {
		return model.StatusUnknown, nil
	}
	return status, nil
}

func (q *Memory) Ping(ctx context.Context) error {
	return nil
}

// Depth returns the number of queued jobs, for assertions in tests.
func (q *Memory) Depth() int {
	return len(q.jobs)
}
