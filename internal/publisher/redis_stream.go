package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendalyze/tendalyze/internal/store"
)

// IngestStream is the Redis stream carrying completed imports
const IngestStream = "ingest.events"

// maxStreamLen caps the stream; older entries are trimmed approximately.
const maxStreamLen = 10000

// Publisher announces completed imports
type Publisher interface {
	PublishIngest(ctx context.Context, event store.IngestEvent) error
}

// RedisPublisher publishes events to Redis streams
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher from an existing client
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// PublishIngest appends an ingest event to the stream
func (rp *RedisPublisher) PublishIngest(ctx context.Context, event store.IngestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: IngestStream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}

// Tail blocks reading new stream entries and hands each decoded event to fn
// until ctx is cancelled. Entries that fail to decode are skipped.
func (rp *RedisPublisher) Tail(ctx context.Context, fn func(store.IngestEvent)) error {
	lastID := "$"

	for {
		streams, err := rp.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{IngestStream, lastID},
			Count:   50,
			Block:   5 * time.Second,
		}).Result()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", IngestStream, err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				event, ok := decodeEvent(msg)
				if ok {
					fn(event)
				}
			}
		}
	}
}

func decodeEvent(msg redis.XMessage) (store.IngestEvent, bool) {
	var event store.IngestEvent

	raw, ok := msg.Values["data"].(string)
	if !ok {
		return event, false
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, false
	}
	return event, true
}

// Nop discards events. Used when Redis is disabled.
type Nop struct{}

func (Nop) PublishIngest(context.Context, store.IngestEvent) error { return nil }
