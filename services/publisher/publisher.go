package publisher

import (
	"context"
	"time"
)

// RunEvent summarizes one city of one run
type RunEvent struct {
	RunID      string         `json:"run_id"`
	City       string         `json:"city"`
	Date       string         `json:"date"`
	Path       string         `json:"path"`
	URLs       int            `json:"urls"`
	Raw        int            `json:"raw"`
	Kept       int            `json:"kept"`
	Skipped    map[string]int `json:"skipped"`
	Dropped    map[string]int `json:"dropped"`
	Overwrote  bool           `json:"overwrote"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Publisher represents a service for publishing run events
type Publisher interface {
	// Publish publishes an event to the stream
	Publish(ctx context.Context, event RunEvent) error

	// Close closes the publisher connection
	Close() error
}
