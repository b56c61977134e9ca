package photos

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"idcards/internal/queue"
)

func TestCleanupHandleDeletes(t *testing.T) {
	media := &fakeMedia{}
	q := queue.NewInMemory(4)
	c := NewCleanup(q, media, zap.NewNop(), nil)

	c.Handle(context.Background(), queue.Message{Type: queue.MediaDelete, Body: []byte("idcards/students/a")})
	if len(media.deletes) != 1 || media.deletes[0] != "idcards/students/a" {
		t.Fatalf("expected delete of key, got %v", media.deletes)
	}
	c.Handle(context.Background(), queue.Message{Type: "other", Body: []byte("x")})
	if len(media.deletes) != 1 {
		t.Fatalf("expected unrelated message ignored")
	}
}

func TestCleanupFailureIsParkedThenDropped(t *testing.T) {
	ctx := context.Background()
	media := &fakeMedia{failDel: errors.New("cdn down")}
	q := queue.NewInMemory(8)
	c := NewCleanup(q, media, zap.NewNop(), nil)

	c.Handle(ctx, queue.Message{Type: queue.MediaDelete, Body: []byte("k")})
	n, err := q.Requeue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected failed deletion parked, got %d %v", n, err)
	}

	c.Handle(ctx, queue.Message{Type: queue.MediaDelete, Body: []byte("k"), Attempts: MaxCleanupAttempts - 1})
	if n, _ := q.Requeue(ctx); n != 0 {
		t.Fatalf("expected deletion dropped after max attempts, got %d parked", n)
	}
}

func TestScheduledSweepRetriesParkedDeletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	media := &fakeMedia{failDel: errors.New("cdn down")}
	q := queue.NewInMemory(8)
	c := NewCleanup(q, media, zap.NewNop(), nil)

	c.Handle(ctx, queue.Message{Type: queue.MediaDelete, Body: []byte("k")})
	media.mu.Lock()
	media.failDel = nil
	media.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	sched, err := c.Schedule(ctx, "@every 1s")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer func() { <-sched.Stop().Done() }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		media.mu.Lock()
		deleted := append([]string(nil), media.deletes...)
		media.mu.Unlock()
		if len(deleted) == 1 && deleted[0] == "k" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected parked deletion retried by the sweep, got %v", deleted)
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	c := NewCleanup(queue.NewInMemory(1), nil, zap.NewNop(), nil)
	if _, err := c.Schedule(context.Background(), "not a schedule"); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestEnqueueCountsOverflow(t *testing.T) {
	q := queue.NewInMemory(2)
	c := NewCleanup(q, nil, zap.NewNop(), nil)
	if got := c.Enqueue(context.Background(), "a", "b", "c", "d"); got != 2 {
		t.Fatalf("expected 2 queued on a full buffer, got %d", got)
	}
}

func TestEnqueueSkipsEmptyKeys(t *testing.T) {
	q := queue.NewInMemory(4)
	c := NewCleanup(q, nil, zap.NewNop(), nil)
	if got := c.Enqueue(context.Background(), "a", "", "b"); got != 2 {
		t.Fatalf("expected 2 queued, got %d", got)
	}
}
