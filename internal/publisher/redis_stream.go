package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ProgressStream is the Redis stream crawl and extraction progress is
// published to.
const ProgressStream = "hoopstats.progress"

// Event types.
const (
	EventJobStart        = "job.start"
	EventSeasonStart     = "season.start"
	EventPageSaved       = "page.saved"
	EventPageSkipped     = "page.skipped"
	EventPageFailed      = "page.failed"
	EventJobComplete     = "job.complete"
	EventExtractProgress = "extract.progress"
	EventExtractComplete = "extract.complete"
)

// Event is one progress notification.
type Event struct {
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	Seasons   []int     `json:"seasons,omitempty"`
	Season    int       `json:"season,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	URL       string    `json:"url,omitempty"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Fetched   int64     `json:"fetched,omitempty"`
	Skipped   int64     `json:"skipped,omitempty"`
	Failed    int64     `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: ProgressStream,
		maxLen: 10000,
	}
}

// NewRunID returns an identifier tying together the events of one run.
func NewRunID() string {
	return uuid.NewString()
}

// Publish appends an event to the progress stream.
func (rsp *RedisStreamPublisher) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rsp.stream,
		MaxLen: rsp.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":      e.Type,
			"data":      string(data),
			"timestamp": e.Timestamp.Unix(),
		},
	}).Err()
}

// Tail reads events after the given stream id ("$" for only new ones) and
// hands each to fn until ctx ends or fn returns an error.
func (rsp *RedisStreamPublisher) Tail(ctx context.Context, from string, fn func(id string, e Event) error) error {
	if from == "" {
		from = "$"
	}
	last := from

	for {
		streams, err := rsp.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{rsp.stream, last},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading %s: %w", rsp.stream, err)
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				last = msg.ID
				e, err := DecodeMessage(msg)
				if err != nil {
					continue
				}
				if err := fn(msg.ID, e); err != nil {
					return err
				}
			}
		}
	}
}

// DecodeMessage extracts the event carried by a stream entry.
func DecodeMessage(msg redis.XMessage) (Event, error) {
	var e Event
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return e, fmt.Errorf("message %s has no data field", msg.ID)
	}
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return e, fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return e, nil
}
