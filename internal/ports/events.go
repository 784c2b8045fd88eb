package ports

import (
	"context"
	"time"
)

// AnalyticsEvent is a flat, string-valued record of something that happened in a session.
type AnalyticsEvent struct {
	Name       string
	SessionID  string
	Properties map[string]string
	Timestamp  time.Time
}

// EventPort forwards analytics events. Delivery is best effort.
type EventPort interface {
	Publish(ctx context.Context, events []AnalyticsEvent) error
}
