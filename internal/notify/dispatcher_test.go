package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/foodatrack/internal/models"
)

type flakyChannel struct {
	name     string
	failures int
	notify   bool

	mu    sync.Mutex
	calls int
}

func (c *flakyChannel) Name() string { return c.name }

func (c *flakyChannel) Recipient(e Event) string {
	if c.notify && !e.Notifiable() {
		return ""
	}
	return c.name + "-target"
}

func (c *flakyChannel) Send(ctx context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failures {
		return errors.New("temporary failure")
	}
	return nil
}

func (c *flakyChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memoryRecorder struct {
	mu      sync.Mutex
	records map[string][]models.NotificationRecord
}

func (r *memoryRecorder) AppendNotification(_ context.Context, orderID string, rec models.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records == nil {
		r.records = map[string][]models.NotificationRecord{}
	}
	r.records[orderID] = append(r.records[orderID], rec)
	return nil
}

func (r *memoryRecorder) get(orderID string) []models.NotificationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.NotificationRecord(nil), r.records[orderID]...)
}

func startDispatcher(t *testing.T, cfg models.DispatcherConfig, rec Recorder, channels ...Channel) *Dispatcher {
	t.Helper()
	d := NewDispatcher(cfg, rec, slog.New(slog.NewTextHandler(io.Discard, nil)), channels)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	rec := &memoryRecorder{}
	sms := &flakyChannel{name: "sms", failures: 2, notify: true}
	d := startDispatcher(t, models.DispatcherConfig{MaxAttempts: 3, RetryBackoff: 5 * time.Millisecond, Workers: 2}, rec, sms)

	d.Emit(sampleEvent(models.EventStatusChanged))

	require.Eventually(t, func() bool { return len(rec.get("ckx1a2b3c4d5e6")) == 1 }, 2*time.Second, 5*time.Millisecond)
	got := rec.get("ckx1a2b3c4d5e6")[0]
	assert.True(t, got.Success)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "sms", got.Channel)
	assert.Equal(t, "sms-target", got.Recipient)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.Empty(t, got.Error)
	assert.Equal(t, 3, sms.callCount())
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	rec := &memoryRecorder{}
	email := &flakyChannel{name: "email", failures: 100, notify: true}
	d := startDispatcher(t, models.DispatcherConfig{MaxAttempts: 2, RetryBackoff: time.Millisecond, Workers: 1}, rec, email)

	d.Emit(sampleEvent(models.EventDriverAssigned))

	require.Eventually(t, func() bool { return len(rec.get("ckx1a2b3c4d5e6")) == 1 }, 2*time.Second, 5*time.Millisecond)
	got := rec.get("ckx1a2b3c4d5e6")[0]
	assert.False(t, got.Success)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "temporary failure", got.Error)
	require.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

type slowChannel struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *slowChannel) Name() string           { return "sms" }
func (c *slowChannel) Recipient(Event) string { return "+905551112233" }

func (c *slowChannel) Send(ctx context.Context, e Event) error {
	c.once.Do(func() { close(c.started) })
	select {
	case <-c.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestDispatcher_DrainWaitsForSendInFlight(t *testing.T) {
	rec := &memoryRecorder{}
	sms := &slowChannel{started: make(chan struct{}), release: make(chan struct{})}
	d := startDispatcher(t, models.DispatcherConfig{MaxAttempts: 1, Workers: 1}, rec, sms)

	d.Emit(sampleEvent(models.EventStatusChanged))
	<-sms.started
	assert.Equal(t, 1, d.Pending())

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Drain(short), context.DeadlineExceeded)

	drained := make(chan error, 1)
	go func() { drained <- d.Drain(context.Background()) }()
	select {
	case <-drained:
		t.Fatal("drain returned while the send was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(sms.release)
	select {
	case err := <-drained:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("drain did not return after the send finished")
	}
	require.Len(t, rec.get("ckx1a2b3c4d5e6"), 1)
	assert.True(t, rec.get("ckx1a2b3c4d5e6")[0].Success)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcher_StreamOnlyEventsAreNotRecorded(t *testing.T) {
	rec := &memoryRecorder{}
	sms := &flakyChannel{name: "sms", notify: true}
	stream := &flakyChannel{name: "kafka"}
	startDispatcher(t, models.DispatcherConfig{MaxAttempts: 1, Workers: 1}, rec, sms, stream).
		Emit(sampleEvent(models.EventLocationUpdated))

	require.Eventually(t, func() bool { return stream.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sms.callCount())
	assert.Empty(t, rec.get("ckx1a2b3c4d5e6"))
}
