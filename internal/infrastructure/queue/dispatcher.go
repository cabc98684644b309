// Package queue writes audit events off the request path.
package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankunstudio/backoffice/internal/api/metrics"
	"github.com/ankunstudio/backoffice/internal/core/domain"
	"github.com/ankunstudio/backoffice/internal/core/ports"
)

const (
	defaultWorkers      = 4
	channelBuffer       = 256
	defaultWriteTimeout = 5 * time.Second
)

// ErrQueueFull is returned by InsertEvent when the worker for the event's
// username has no buffer left, or the dispatcher has stopped.
var ErrQueueFull = errors.New("audit queue full")

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the username, preserving per-user event ordering. It satisfies
// ports.AuthEventRepository so the credential service never waits on the sink.
type Dispatcher struct {
	workers      []chan domain.AuthEvent
	sink         ports.AuthEventRepository
	writeTimeout time.Duration
	log          zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

var _ ports.AuthEventRepository = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers writing
// to sink. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.AuthEventRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:      make([]chan domain.AuthEvent, numWorkers),
		sink:         sink,
		writeTimeout: defaultWriteTimeout,
		log:          log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// InsertEvent enqueues event without blocking.
func (d *Dispatcher) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	if event == nil {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}

	select {
	case d.workers[d.shardIndex(event.Username)] <- *event:
		return nil
	default:
		metrics.AuditEventsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Stop closes the queues and waits for workers to drain them or for ctx to
// expire, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(username)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	for event := range ch {
		d.write(id, event)
	}
}

func (d *Dispatcher) write(id int, event domain.AuthEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
			d.log.Error().Interface("panic", r).Int("worker_id", id).Msg("audit write panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
	defer cancel()

	if err := d.sink.InsertEvent(ctx, &event); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("username", event.Username).
			Str("action", event.Action).
			Int("worker_id", id).
			Msg("audit write failed")
		return
	}
	metrics.AuditEventsTotal.WithLabelValues("written").Inc()
}
