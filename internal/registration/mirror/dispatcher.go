package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signup/internal/registration/metrics"
	"signup/internal/registration/models"
	"signup/pkg/platform/circuit"
	"signup/pkg/requestcontext"
)

const (
	dropQueueFull   = "queue_full"
	dropBreakerOpen = "breaker_open"
	dropEncode      = "encode"
	dropShutdown    = "shutdown"
)

// Dispatcher is a queued Mirror. Run must be started for events to leave
// the queue.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
	source  string
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithSource sets the origin tag stamped on every payload.
func WithSource(source string) Option {
	return func(d *Dispatcher) { d.source = source }
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// WithTimeout bounds each sink send.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher builds a dispatcher for sink with a 1024-event queue, a 5s
// send timeout and a breaker that opens after 5 consecutive failures.
func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Event, 1024),
		logger:  slog.Default(),
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.breaker == nil {
		d.breaker = circuit.New("mirror", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1))
	}
	return d
}

func (d *Dispatcher) Primary(ctx context.Context, record models.RegistrationRecord) {
	d.enqueue(ctx, record, FormPrimary, record.ID.String())
}

func (d *Dispatcher) Supplemental(ctx context.Context, record models.SupplementalInfoRecord) {
	d.enqueue(ctx, record, FormAdditional, record.RegistrationID.String())
}

func (d *Dispatcher) enqueue(ctx context.Context, record any, formType FormType, key string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.ErrorContext(ctx, "mirror enqueue panicked",
				"request_id", requestcontext.RequestID(ctx),
				"panic", fmt.Sprint(rec),
			)
		}
	}()

	body, err := Encode(record, formType, d.source, d.now())
	if err != nil {
		d.metrics.IncrementMirrorDropped(dropEncode)
		d.logger.WarnContext(ctx, "mirror payload encode failed",
			"request_id", requestcontext.RequestID(ctx),
			"form_type", formType,
			"error", err,
		)
		return
	}

	select {
	case d.queue <- Event{FormType: formType, Key: key, Body: body, RequestID: requestcontext.RequestID(ctx)}:
		d.metrics.IncrementMirrorEnqueued()
		d.metrics.SetMirrorQueueDepth(len(d.queue))
	default:
		d.metrics.IncrementMirrorDropped(dropQueueFull)
		d.logger.WarnContext(ctx, "mirror queue full, event dropped",
			"request_id", requestcontext.RequestID(ctx),
			"form_type", formType,
			"registration_id", key,
		)
	}
}

// Run drains the queue until ctx is cancelled, then makes one bounded pass
// over whatever is still queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return nil
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	deadline := time.Now().Add(d.timeout)
	for {
		select {
		case ev := <-d.queue:
			if time.Now().After(deadline) {
				d.metrics.IncrementMirrorDropped(dropShutdown)
				continue
			}
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	d.metrics.SetMirrorQueueDepth(len(d.queue))
	if !d.breaker.Allow() {
		d.metrics.IncrementMirrorDropped(dropBreakerOpen)
		d.logger.DebugContext(ctx, "mirror circuit open, event dropped",
			"form_type", ev.FormType,
			"registration_id", ev.Key,
		)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.send(sendCtx, ev); err != nil {
		d.metrics.IncrementMirrorFailed()
		_, change := d.breaker.RecordFailure()
		d.logger.WarnContext(ctx, "mirror send failed",
			"request_id", ev.RequestID,
			"form_type", ev.FormType,
			"registration_id", ev.Key,
			"error", err,
		)
		if change.Opened {
			d.metrics.SetMirrorBreakerOpen(true)
			d.logger.WarnContext(ctx, "mirror circuit opened", "breaker", d.breaker.Name())
		}
		return
	}

	d.metrics.IncrementMirrorDelivered()
	if _, change := d.breaker.RecordSuccess(); change.Closed {
		d.metrics.SetMirrorBreakerOpen(false)
		d.logger.InfoContext(ctx, "mirror circuit closed", "breaker", d.breaker.Name())
	}
}

func (d *Dispatcher) send(ctx context.Context, ev Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panicked: %v", rec)
		}
	}()
	return d.sink.Send(ctx, ev)
}
