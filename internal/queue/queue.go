package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MediaDelete asks the worker to remove one object from the media store; Body is the object key.
const MediaDelete = "media.delete"

// PopTimeout is how long a RedisQueue consumer blocks in one BRPOP.
const PopTimeout = 5 * time.Second

// ErrFull is returned by InMemory.Publish when the buffer has no room.
var ErrFull = errors.New("queue: buffer full")

// Message represents work to be processed.
type Message struct {
	Type     string `json:"type"`
	Body     []byte `json:"body"`
	Attempts int    `json:"attempts"`
}

// Queue is the abstraction over different backends. Deferred messages are
// parked until Requeue moves them back onto the live queue.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
	Defer(ctx context.Context, msg Message) error
	Requeue(ctx context.Context) (int, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Message

	mu       sync.Mutex
	deferred []Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message without waiting for a consumer.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Defer parks a message for a later Requeue.
func (q *InMemory) Defer(_ context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deferred = append(q.deferred, msg)
	return nil
}

// Requeue publishes every parked message again.
func (q *InMemory) Requeue(ctx context.Context) (int, error) {
	q.mu.Lock()
	parked := q.deferred
	q.deferred = nil
	q.mu.Unlock()

	for i, msg := range parked {
		if err := q.Publish(ctx, msg); err != nil {
			q.mu.Lock()
			q.deferred = append(q.deferred, parked[i:]...)
			q.mu.Unlock()
			return i, err
		}
	}
	return len(parked), nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client   *redis.Client
	key      string
	retryKey string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "idcards:queue"
	}
	return &RedisQueue{client: client, key: key, retryKey: key + ":retry"}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	raw, err := serialize(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume streams messages using BRPOP.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, PopTimeout, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if err != redis.Nil {
					// back off so a dead redis does not spin the loop
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if len(res) == 2 {
				if msg, err := deserialize(res[1]); err == nil {
					select {
					case out <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// Defer parks a message on the retry list.
func (q *RedisQueue) Defer(ctx context.Context, msg Message) error {
	raw, err := serialize(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.retryKey, raw).Err()
}

// Requeue moves every parked message back onto the live list.
func (q *RedisQueue) Requeue(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.LMove(ctx, q.retryKey, q.key, "RIGHT", "LEFT").Err()
		if err == redis.Nil {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

func serialize(msg Message) (string, error) {
	raw, err := json.Marshal(msg)
	return string(raw), err
}

func deserialize(s string) (Message, error) {
	var msg Message
	err := json.Unmarshal([]byte(s), &msg)
	return msg, err
}
