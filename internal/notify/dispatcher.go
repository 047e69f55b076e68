package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// Recorder stores the final outcome of a notification on the order.
type Recorder interface {
	AppendNotification(ctx context.Context, orderID string, record models.NotificationRecord) error
}

type delivery struct {
	event     Event
	channel   Channel
	recipient string
	attempt   int
}

// Dispatcher consumes committed order events and delivers them over its
// channels. Failed sends are retried with exponential backoff on the event
// queue; the status write that produced the event is never touched.
type Dispatcher struct {
	channels    []Channel
	recorder    Recorder
	queue       *models.EventQueue
	maxAttempts int
	backoff     time.Duration
	workers     int
	sendTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	// deliveries taken off the queue whose outcome is not settled yet
	inflight atomic.Int64
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(cfg models.DispatcherConfig, recorder Recorder, logger *slog.Logger, channels []Channel, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		channels:    channels,
		recorder:    recorder,
		queue:       models.NewEventQueue(),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		workers:     cfg.Workers,
		sendTimeout: 10 * time.Second,
		logger:      logger.With("component", "dispatcher"),
		now:         time.Now,
	}
	if d.maxAttempts < 1 {
		d.maxAttempts = 1
	}
	if d.workers < 1 {
		d.workers = 1
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Emit queues one delivery per channel with something to send. It never
// blocks.
func (d *Dispatcher) Emit(e Event) {
	for _, ch := range d.channels {
		recipient := ch.Recipient(e)
		if recipient == "" {
			continue
		}
		d.queue.Enqueue(&models.Event{
			Time: d.now(),
			Type: e.Type,
			Data: &delivery{event: e, channel: ch, recipient: recipient, attempt: 1},
		})
	}
}

// Pending returns the number of deliveries not settled yet: queued ones,
// scheduled retries and the ones a worker is sending or recording.
func (d *Dispatcher) Pending() int {
	return d.queue.Len() + int(d.inflight.Load())
}

// Drain blocks until every pending delivery has been sent or given up on,
// or until ctx is done. Run must still be going for Drain to finish.
func (d *Dispatcher) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for d.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Run processes deliveries until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		// counted before the pop so Pending never misses a delivery in hand
		d.inflight.Add(1)
		if ev := d.queue.PopDue(d.now()); ev != nil {
			d.deliver(ctx, ev.Data.(*delivery))
			d.inflight.Add(-1)
			continue
		}
		d.inflight.Add(-1)

		wait := time.Hour
		if next := d.queue.Peek(); next != nil {
			wait = next.Time.Sub(d.now())
			if wait < time.Millisecond {
				wait = time.Millisecond
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return
		case <-d.queue.Wait():
		case <-timer.C:
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, dl *delivery) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	err := dl.channel.Send(sendCtx, dl.event)
	cancel()

	log := d.logger.With("event_id", dl.event.ID, "order_id", dl.event.OrderID, "channel", dl.channel.Name(), "attempt", dl.attempt)
	if err != nil && dl.attempt < d.maxAttempts && ctx.Err() == nil {
		delay := d.backoff * time.Duration(1<<(dl.attempt-1))
		log.Warn("notification failed, retrying", "error", err, "retry_in", delay)
		dl.attempt++
		d.queue.Enqueue(&models.Event{
			Time: d.now().Add(delay),
			Type: models.EventNotificationRetry,
			Data: dl,
		})
		return
	}

	if err != nil {
		log.Error("notification failed", "error", err)
	} else {
		log.Debug("notification sent")
	}
	if !dl.event.Notifiable() || d.recorder == nil {
		return
	}
	record := models.NotificationRecord{
		EventID:   dl.event.ID,
		Channel:   dl.channel.Name(),
		Recipient: dl.recipient,
		Status:    dl.event.Status,
		Message:   dl.event.Message,
		SentAt:    d.now(),
		Success:   err == nil,
		Attempts:  dl.attempt,
	}
	if err != nil {
		record.Error = err.Error()
	}
	// recording outlives the dispatcher context so shutdown does not drop it
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := d.recorder.AppendNotification(recordCtx, dl.event.OrderID, record); rerr != nil {
		log.Error("failed to record notification outcome", "error", rerr)
	}
}
