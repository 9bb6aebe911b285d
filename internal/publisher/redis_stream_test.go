package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStop = errors.New("stop")

func newTestPublisher(t *testing.T) (*RedisStreamPublisher, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStreamPublisher(client), client, mr
}

func TestPublishAppendsToStream(t *testing.T) {
	pub, _, mr := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, pub.Publish(ctx, Event{RunID: "run-1", Type: EventJobStart, Seasons: []int{2022}}))
	require.NoError(t, pub.Publish(ctx, Event{RunID: "run-1", Type: EventPageFailed, Kind: "schedule", URL: "https://example.test/a.html"}))

	entries, err := mr.Stream(ProgressStream)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Values, "type")
	assert.Contains(t, entries[0].Values, EventJobStart)
	assert.Contains(t, entries[1].Values, EventPageFailed)
}

func TestTailDecodesEventsInOrder(t *testing.T) {
	pub, client, _ := newTestPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stamp := time.Date(2021, 10, 19, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(ctx, Event{RunID: "run-1", Type: EventSeasonStart, Season: 2022, Timestamp: stamp}))
	// Entries without a data field are skipped.
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: ProgressStream,
		Values: map[string]interface{}{"type": "junk"},
	}).Err())
	require.NoError(t, pub.Publish(ctx, Event{RunID: "run-1", Type: EventJobComplete, Fetched: 3, Failed: 1}))

	var got []Event
	var ids []string
	err := pub.Tail(ctx, "0", func(id string, e Event) error {
		ids = append(ids, id)
		got = append(got, e)
		if len(got) == 2 {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)

	require.Len(t, got, 2)
	assert.Equal(t, EventSeasonStart, got[0].Type)
	assert.Equal(t, 2022, got[0].Season)
	assert.True(t, stamp.Equal(got[0].Timestamp))
	assert.Equal(t, EventJobComplete, got[1].Type)
	assert.Equal(t, int64(3), got[1].Fetched)
	assert.Equal(t, int64(1), got[1].Failed)
	assert.False(t, got[1].Timestamp.IsZero(), "publish stamps events")
	assert.NotEqual(t, ids[0], ids[1])
}

func TestTailResumesAfterID(t *testing.T) {
	pub, _, _ := newTestPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, pub.Publish(ctx, Event{Type: EventJobStart}))
	require.NoError(t, pub.Publish(ctx, Event{Type: EventJobComplete}))

	var firstID string
	require.ErrorIs(t, pub.Tail(ctx, "0", func(id string, _ Event) error {
		firstID = id
		return errStop
	}), errStop)

	var next Event
	require.ErrorIs(t, pub.Tail(ctx, firstID, func(_ string, e Event) error {
		next = e
		return errStop
	}), errStop)
	assert.Equal(t, EventJobComplete, next.Type)
}
