package queue

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	insertTimeout  = 5 * time.Second
)

// AuditSink persists one audit event.
type AuditSink interface {
	Insert(ctx context.Context, event ports.AuditEvent) error
}

// AuditDispatcher takes audit events off the request path: Record enqueues
// onto a fixed set of workers sharded by user id, so events for the same user
// are persisted in the order they were recorded. A full shard drops the event
// rather than block an auth flow.
type AuditDispatcher struct {
	workers []chan ports.AuditEvent
	sink    AuditSink
	log     zerolog.Logger
}

// NewAuditDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAuditDispatcher(numWorkers int, sink AuditSink, log zerolog.Logger) *AuditDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AuditDispatcher{
		workers: make([]chan ports.AuditEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *AuditDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record satisfies ports.AuditLogger. It never blocks and never fails the
// caller; a saturated shard logs and drops.
func (d *AuditDispatcher) Record(event ports.AuditEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	ch := d.workers[d.shardIndex(event)]
	select {
	case ch <- event:
	default:
		d.log.Warn().
			Str("action", event.Action).
			Msg("audit queue full, event dropped")
	}
}

// shardIndex maps an event deterministically to a worker index. Events with
// no user id hash on the tenant instead.
func (d *AuditDispatcher) shardIndex(event ports.AuditEvent) int {
	key := event.UserID
	if key == "" {
		key = event.TenantID
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(d.workers)
}

func (d *AuditDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.AuditEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			insertCtx, cancel := context.WithTimeout(context.Background(), insertTimeout)
			if err := d.sink.Insert(insertCtx, event); err != nil {
				d.log.Error().Err(err).
					Str("action", event.Action).
					Int("worker_id", id).
					Msg("audit event persistence failed")
			}
			cancel()
		}
	}
}
