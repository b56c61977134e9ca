package photos

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"idcards/internal/metrics"
	"idcards/internal/queue"
)

// MaxCleanupAttempts bounds how often a single deletion is retried before it is dropped.
const MaxCleanupAttempts = 5

// Cleanup schedules and performs best-effort media deletions. A failed deletion
// never undoes the database change that made the object obsolete.
type Cleanup struct {
	q       queue.Queue
	media   MediaStore
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewCleanup wires the queue and media store. media may be nil on the API side,
// which only enqueues.
func NewCleanup(q queue.Queue, media MediaStore, log *zap.Logger, m *metrics.Metrics) *Cleanup {
	return &Cleanup{q: q, media: media, log: log, metrics: m}
}

// Enqueue schedules deletion of every key. It returns how many were queued;
// keys that could not be queued are logged and skipped.
func (c *Cleanup) Enqueue(ctx context.Context, keys ...string) int {
	queued := 0
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := c.q.Publish(ctx, queue.Message{Type: queue.MediaDelete, Body: []byte(key)}); err != nil {
			c.log.Error("queue media cleanup failed", zap.String("key", key), zap.Error(err))
			c.metrics.Cleanup("enqueue_failed")
			continue
		}
		queued++
	}
	return queued
}

// Handle deletes the object named by one queued message. Failures are parked
// for the retry sweep until MaxCleanupAttempts is reached.
func (c *Cleanup) Handle(ctx context.Context, msg queue.Message) {
	if msg.Type != queue.MediaDelete {
		return
	}
	key := string(msg.Body)
	delCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := c.media.Delete(delCtx, key)
	if err == nil {
		c.metrics.Cleanup("deleted")
		c.log.Info("media object deleted", zap.String("key", key))
		return
	}

	msg.Attempts++
	if msg.Attempts >= MaxCleanupAttempts {
		c.metrics.Cleanup("dropped")
		c.log.Error("media cleanup gave up", zap.String("key", key), zap.Int("attempts", msg.Attempts), zap.Error(err))
		return
	}
	c.metrics.Cleanup("failed")
	c.log.Warn("media cleanup failed, will retry", zap.String("key", key), zap.Int("attempts", msg.Attempts), zap.Error(err))
	if derr := c.q.Defer(ctx, msg); derr != nil {
		c.log.Error("park media cleanup failed", zap.String("key", key), zap.Error(derr))
	}
}

// Run consumes the queue until ctx is cancelled.
func (c *Cleanup) Run(ctx context.Context) error {
	msgs, err := c.q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range msgs {
		c.Handle(ctx, msg)
	}
	return nil
}

// Sweep moves parked deletions back onto the live queue.
func (c *Cleanup) Sweep(ctx context.Context) {
	n, err := c.q.Requeue(ctx)
	if err != nil {
		c.log.Error("requeue media cleanups failed", zap.Int("moved", n), zap.Error(err))
		return
	}
	if n > 0 {
		c.log.Info("requeued media cleanups", zap.Int("count", n))
	}
}

// Schedule starts a cron that runs Sweep on spec. The caller stops it.
func (c *Cleanup) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	sched := cron.New()
	if _, err := sched.AddFunc(spec, func() { c.Sweep(ctx) }); err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
