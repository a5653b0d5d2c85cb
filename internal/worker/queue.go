// Package worker runs jobs one at a time on a single background goroutine.
// Session mutations go through a Queue so that at most one of them is in
// flight per repository.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("worker: queue closed")

// Job is a unit of work. It receives the context passed to Do.
type Job func(ctx context.Context) error

type request struct {
	id   string
	name string
	ctx  context.Context
	fn   Job
	done chan error
}

// Queue serializes jobs onto one goroutine.
type Queue struct {
	logger *slog.Logger
	reqs   chan request

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts a queue that buffers up to backlog pending jobs.
func NewQueue(backlog int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		logger: logger,
		reqs:   make(chan request, backlog),
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Do enqueues fn and waits for it to finish. If ctx ends while the job is
// still waiting its turn, the job is skipped and ctx's error is returned.
// A job that has started always runs to completion; it should watch ctx
// itself.
func (q *Queue) Do(ctx context.Context, name string, fn Job) error {
	req := request{
		id:   uuid.NewString(),
		name: name,
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	select {
	case q.reqs <- req:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}

	return <-req.done
}

// Close stops accepting jobs, lets queued jobs finish, and waits for the
// worker goroutine to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.reqs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for req := range q.reqs {
		req.done <- q.run(req)
	}
}

func (q *Queue) run(req request) (err error) {
	if err := req.ctx.Err(); err != nil {
		q.logger.Debug("job skipped", "job", req.id, "name", req.name, "error", err)
		return err
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", req.name, r)
		}
		q.logger.Debug("job finished", "job", req.id, "name", req.name,
			"duration", time.Since(start), "error", err)
	}()

	q.logger.Debug("job started", "job", req.id, "name", req.name)
	return req.fn(req.ctx)
}
