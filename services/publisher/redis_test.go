package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	const stream = "test_rental_scrapes"

	publisher := NewRedisPublisher("localhost:6379", 0, stream, 10)
	defer publisher.Close()

	// Test if Redis is available
	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()
	require.NoError(t, client.Del(ctx, stream).Err())
	defer client.Del(ctx, stream)

	event := RunEvent{
		RunID:      "run-1",
		City:       "Woburn,MA",
		Date:       "2024-01-02",
		Path:       "daily_scrape/Woburn_MA/2024-01-02.csv",
		URLs:       3,
		Raw:        5,
		Kept:       4,
		Skipped:    map[string]int{"missing_node": 1},
		FinishedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var got RunEvent
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values[eventField].(string)), &got))
	assert.Equal(t, event, got)
}

func TestRedisPublisherUnreachable(t *testing.T) {
	// Nothing listens on port 1
	publisher := NewRedisPublisher("127.0.0.1:1", 0, "test_rental_scrapes", 10)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, publisher.Publish(ctx, RunEvent{RunID: "x"}))
}
