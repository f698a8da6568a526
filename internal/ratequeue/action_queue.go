package ratequeue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action is the scarce, globally rate-limited operation the queue serializes
// (in production: a viewport screenshot capture).
type Action func(ctx context.Context) ([]byte, error)

// result carries the outcome of one executed action back to its requester.
type result struct {
	payload []byte
	err     error
}

type entry struct {
	ctx      context.Context
	action   Action
	resultCh chan result
}

// ActionQueue serializes calls to a rate-limited action so at most one is
// outstanding at a time and consecutive actions are spaced by at least
// MinDelay. Entries are served strictly in FIFO order; a failure of one
// entry's action rejects only that entry and the queue continues.
type ActionQueue struct {
	config ActionQueueConfig
	logger zerolog.Logger

	mu           sync.Mutex
	queue        []*entry
	processing   bool
	lastActionAt time.Time
}

// NewActionQueue creates a new rate-limited action queue.
func NewActionQueue(config ActionQueueConfig, logger zerolog.Logger) *ActionQueue {
	if config.MinDelay <= 0 {
		config.MinDelay = DefaultMinDelay
	}

	return &ActionQueue{
		config: config,
		logger: logger.With().Str("component", "ActionQueue").Logger(),
	}
}

// Enqueue appends a request and blocks until its action has been executed,
// returning that execution's outcome. The queue is process-wide: entries
// from all pages share the same FIFO order and spacing. If ctx is cancelled
// before the request's turn arrives, Enqueue returns the context error and
// the eventual result is discarded; the queue itself is unaffected.
func (q *ActionQueue) Enqueue(ctx context.Context, action Action) ([]byte, error) {
	e := &entry{
		ctx:      ctx,
		action:   action,
		resultCh: make(chan result, 1),
	}

	q.mu.Lock()
	q.queue = append(q.queue, e)
	startLoop := !q.processing
	if startLoop {
		q.processing = true
	}
	pending := len(q.queue)
	q.mu.Unlock()

	q.logger.Debug().Int("pending", pending).Bool("loop_started", startLoop).Msg("Request enqueued")

	if startLoop {
		go q.process()
	}

	select {
	case res := <-e.resultCh:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of requests waiting for execution.
func (q *ActionQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// process drains the queue. Only one instance runs at a time; the processing
// flag prevents a second loop from being spawned by Enqueue while draining.
func (q *ActionQueue) process() {
	for {
		q.mu.Lock()
		if len(q.queue) == 0 {
			q.processing = false
			q.mu.Unlock()
			return
		}
		e := q.queue[0]
		q.queue = q.queue[1:]
		wait := q.config.MinDelay - time.Since(q.lastActionAt)
		q.mu.Unlock()

		if wait > 0 {
			time.Sleep(wait)
		}

		payload, err := e.action(e.ctx)

		// The timestamp advances regardless of success so a failing action
		// cannot collapse the spacing for the next entry.
		q.mu.Lock()
		q.lastActionAt = time.Now()
		q.mu.Unlock()

		if err != nil {
			q.logger.Debug().Err(err).Msg("Queued action failed, continuing with next entry")
		}
		e.resultCh <- result{payload: payload, err: err}
	}
}
