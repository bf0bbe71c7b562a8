// Package audit is the incident sink: durable, append-only recording of
// classified incidents and activity telemetry, with best-effort mirroring to
// the reporting collaborator.
//
// RecordIncident returns once the local write is committed. Forwarding
// happens on a single delivery worker fed by a bounded queue, so a slow or
// unreachable collaborator can never stall a monitoring source; when the
// queue is full the mirror copy is dropped and counted.
package audit

import (
	"context"
	"sync"
	"time"

	"docsentry/internal/logging"
	"docsentry/internal/metrics"
	"docsentry/internal/report"
	"docsentry/internal/store"
)

// DefaultQueueSize bounds the outbound mirror queue.
const DefaultQueueSize = 256

// Recorder is the incident sink. Create with New, stop with Close.
type Recorder struct {
	store     *store.Store
	forwarder report.Forwarder
	log       *logging.Logger

	queue  chan *store.Incident
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithForwarder sets the reporting collaborator client. Without one, incidents
// are recorded locally only.
func WithForwarder(f report.Forwarder) Option {
	return func(r *Recorder) { r.forwarder = f }
}

// WithQueueSize overrides the outbound queue bound.
func WithQueueSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan *store.Incident, n)
		}
	}
}

// New builds a Recorder over the history store and starts the delivery worker.
func New(s *store.Store, log *logging.Logger, opts ...Option) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		store:  s,
		log:    log.WithComponent("audit"),
		queue:  make(chan *store.Incident, DefaultQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.deliveryLoop()
	return r
}

// Close stops the delivery worker. Queued incidents that have not been
// attempted yet are dropped; the local records are already durable.
func (r *Recorder) Close() {
	r.cancel()
	r.wg.Wait()
}

// RecordIncident appends the incident durably, mirrors it into the activity
// log, and enqueues a best-effort forward. Returns once the local writes are
// committed.
func (r *Recorder) RecordIncident(in *store.Incident) error {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	id, err := r.store.InsertIncident(in)
	if err != nil {
		return err
	}
	in.ID = id
	metrics.IncidentsTotal(in.Severity).Inc()

	// Mirror into the activity log so the unified query surface sees security
	// incidents alongside usage telemetry. A mirror failure is logged, not
	// surfaced: the incident itself is already durable.
	_, err = r.store.InsertActivity(&store.Activity{
		Timestamp: in.Timestamp,
		SessionID: in.DetectedBy,
		Kind:      "SECURITY_" + in.OperationType,
		FileName:  in.SourcePath,
		Extra: map[string]any{
			"severity":         in.Severity,
			"destination_path": in.DestinationPath,
			"process_name":     in.ProcessName,
			"content_hash":     in.ContentHash,
		},
	})
	if err != nil {
		r.log.Warn("incident activity mirror failed", "error", err)
	}

	r.enqueue(in)
	return nil
}

// RecordActivity appends one activity entry and returns once it is committed.
func (r *Recorder) RecordActivity(a *store.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	_, err := r.store.InsertActivity(a)
	return err
}

// enqueue hands the incident to the delivery worker without ever blocking.
func (r *Recorder) enqueue(in *store.Incident) {
	if r.forwarder == nil {
		return
	}
	select {
	case r.queue <- in:
		metrics.ForwardQueueDepth().Set(int64(len(r.queue)))
	default:
		metrics.ForwardDroppedTotal().Inc()
		r.log.Warn("forward queue full, incident not mirrored",
			"operation", in.OperationType, "severity", in.Severity)
	}
}

func (r *Recorder) deliveryLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case in := <-r.queue:
			metrics.ForwardQueueDepth().Set(int64(len(r.queue)))
			if err := r.forwarder.Forward(r.ctx, in); err != nil {
				metrics.ForwardFailedTotal().Inc()
				r.log.Debug("incident forward failed", "error", err,
					"operation", in.OperationType)
				continue
			}
			metrics.ForwardSentTotal().Inc()
		}
	}
}
