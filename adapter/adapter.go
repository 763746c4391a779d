// Package adapter defines the notification boundary for completed queries.
//
// Adapters publish query completion events to downstream systems (a webhook
// endpoint or a Redis channel). The client owns adapter lifecycle; users
// provide configuration only.
package adapter

import "context"

// EventTypeQueryCompleted is the only event type published.
const EventTypeQueryCompleted = "query_completed"

// QueryCompletedEvent is the payload published when a poll cycle ends.
type QueryCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "query_completed"
	SessionID       string `json:"session_id"`
	QueryID         string `json:"query_id"`
	Outcome         string `json:"outcome"` // done, failed, timeout, exhausted, unreachable
	Attempts        int    `json:"attempts"`
	DurationMs      int64  `json:"duration_ms"`
	Timestamp       string `json:"timestamp"` // RFC 3339
}

// Adapter publishes query completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *QueryCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
