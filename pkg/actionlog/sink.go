// Package actionlog is the asynchronous analytics sink. Events are
// queued in memory and drained to the store by background workers;
// enqueueing never blocks a request and a full queue drops the event,
// because the action log is best-effort by contract.
package actionlog

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fluxplay/pkg/logger"
	"fluxplay/pkg/models"
)

var (
	metricEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_actionlog_enqueued_total",
		Help: "Action events accepted into the sink queue.",
	})
	metricDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_actionlog_dropped_total",
		Help: "Action events dropped because the queue was full.",
	})
	metricFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxplay_actionlog_failed_total",
		Help: "Action events lost after a failed write and retry.",
	})
)

// Appender is the persistence hook the sink drains into.
type Appender func(e models.ActionEvent) error

// Sink is a bounded fire-and-forget event queue.
type Sink struct {
	ch     chan models.ActionEvent
	append Appender

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
	workers   int
}

// New builds a sink with the given queue capacity and worker count.
// Zero values fall back to sensible defaults.
func New(capacity, workers int, append Appender) *Sink {
	if capacity <= 0 {
		capacity = 1024
	}
	if workers <= 0 {
		workers = 2
	}
	return &Sink{
		ch:      make(chan models.ActionEvent, capacity),
		append:  append,
		workers: workers,
	}
}

// Start launches the drain workers. Workers exit when ctx is cancelled
// or the sink is closed.
func (s *Sink) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.drain(ctx)
		}
	})
}

// Emit enqueues an event without blocking. Events arriving on a full
// queue are counted and discarded; playback must never wait on analytics.
func (s *Sink) Emit(e models.ActionEvent) {
	if e.TS == 0 {
		e.TS = time.Now().UTC().UnixNano()
	}
	select {
	case s.ch <- e:
		metricEnqueued.Inc()
	default:
		metricDropped.Inc()
		logger.Warn("actionlog_queue_full", "chat", e.Chat, "action", string(e.Action))
	}
}

// Close stops accepting events and waits for the workers to drain what
// was already queued.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.ch) })
	s.wg.Wait()
}

func (s *Sink) drain(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// drain whatever is left without blocking, then stop
			for {
				select {
				case e, ok := <-s.ch:
					if !ok {
						return
					}
					s.write(e)
				default:
					return
				}
			}
		case e, ok := <-s.ch:
			if !ok {
				return
			}
			s.write(e)
		}
	}
}

// write persists one event with a single retry. Persistent failure is
// logged and swallowed; the event is analytics, not state.
func (s *Sink) write(e models.ActionEvent) {
	if err := s.append(e); err != nil {
		if err = s.append(e); err != nil {
			metricFailed.Inc()
			logger.Error("actionlog_write_failed", "chat", e.Chat, "action", string(e.Action), "error", err)
		}
	}
}
