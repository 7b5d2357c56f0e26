package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gemcommunity/blog/backend/internal/repositories"
)

type fanOutService interface {
	FanOut(ctx context.Context, ev CommentEvent) (FanOutResult, error)
}

// Dispatcher runs push fan-outs in the background so commenting never waits
// on push delivery. Failed fan-outs are retried with backoff up to a bound;
// a full queue drops the trigger rather than stall the caller. Delivery is
// therefore at-least-once while the queue holds, best-effort past it.
type Dispatcher struct {
	fan        fanOutService
	jobs       chan CommentEvent
	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts workers goroutines consuming the trigger queue.
func NewDispatcher(fan fanOutService, workers, queueSize, maxRetries int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	d := &Dispatcher{
		fan:        fan,
		jobs:       make(chan CommentEvent, queueSize),
		maxRetries: maxRetries,
		retryDelay: 500 * time.Millisecond,
		jobTimeout: 30 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Enqueue hands the event to a background worker and returns immediately.
// Reports false when the queue was full and the trigger dropped.
func (d *Dispatcher) Enqueue(ev CommentEvent) bool {
	select {
	case d.jobs <- ev:
		return true
	default:
		log.Printf("dispatcher: queue full, dropping push trigger for post %s", ev.PostID)
		return false
	}
}

// Close stops accepting triggers and waits for in-flight jobs to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.jobs {
		d.process(ev)
	}
}

func (d *Dispatcher) process(ev CommentEvent) {
	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
		_, err := d.fan.FanOut(ctx, ev)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, repositories.ErrPostNotFound) {
			// The post vanished between comment and fan-out; retrying cannot help.
			log.Printf("dispatcher: post %s gone, dropping push trigger", ev.PostID)
			return
		}
		if attempt >= d.maxRetries {
			log.Printf("dispatcher: giving up on post %s after %d attempts: %v", ev.PostID, attempt+1, err)
			return
		}
		log.Printf("dispatcher: fan-out for post %s failed (attempt %d): %v", ev.PostID, attempt+1, err)
		time.Sleep(d.retryDelay * time.Duration(attempt+1))
	}
}
