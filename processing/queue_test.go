package processing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingProcessor struct {
	mu      sync.Mutex
	done    []string
	release chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, job Job) error {
	if p.release != nil {
		<-p.release
	}
	if job.CallID == "panic" {
		panic("boom")
	}
	p.mu.Lock()
	p.done = append(p.done, job.CallID)
	p.mu.Unlock()
	return nil
}

func TestQueueProcessesAndDrains(t *testing.T) {
	p := &recordingProcessor{}
	q := NewQueue(p, 2, 10, time.Second)
	q.Start(context.Background())

	for _, id := range []string{"a", "panic", "b", "c"} {
		if err := q.Enqueue(Job{CallID: id}); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}
	q.Stop()

	if len(p.done) != 3 {
		t.Errorf("expected 3 processed jobs, got %v", p.done)
	}
	if err := q.Enqueue(Job{CallID: "late"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
	q.Stop()
}

func TestQueueFull(t *testing.T) {
	p := &recordingProcessor{release: make(chan struct{})}
	q := NewQueue(p, 1, 1, 0)

	if err := q.Enqueue(Job{CallID: "a"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(Job{CallID: "b"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	q.Start(context.Background())
	close(p.release)
	q.Stop()
	if len(p.done) != 1 {
		t.Errorf("expected 1 processed job, got %v", p.done)
	}
}
