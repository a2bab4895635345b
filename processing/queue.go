package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull   = errors.New("processing queue is full")
	ErrQueueClosed = errors.New("processing queue is closed")
)

type Processor interface {
	Process(ctx context.Context, job Job) error
}

// Queue runs jobs on a fixed number of workers.
type Queue struct {
	processor Processor
	workers   int
	timeout   time.Duration

	mu     sync.Mutex
	jobs   chan Job
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(p Processor, workers, buffer int, timeout time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		processor: p,
		workers:   workers,
		timeout:   timeout,
		jobs:      make(chan Job, buffer),
	}
}

func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	log.Info().Int("workers", q.workers).Msg("processing queue started")
}

// Enqueue never blocks.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits for queued and running jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
	log.Info().Msg("processing queue stopped")
}

func (q *Queue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(ctx, id, job)
	}
}

func (q *Queue) run(ctx context.Context, worker int, job Job) {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("call", job.CallID).Msg("processing job panicked")
		}
	}()

	start := time.Now()
	if err := q.processor.Process(ctx, job); err != nil {
		log.Warn().Err(err).Int("worker", worker).Str("call", job.CallID).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Debug().Int("worker", worker).Str("call", job.CallID).Dur("took", time.Since(start)).Msg("job done")
}
