package nakama

import (
	"context"
	"errors"
	"fmt"

	"beergame/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// EventSink is the part of runtime.NakamaModule that accepts analytics events.
type EventSink interface {
	Event(ctx context.Context, evt *api.Event) error
}

// EventAdapter implements ports.EventPort by forwarding to Nakama's event pipeline.
type EventAdapter struct {
	sink EventSink
}

// NewEventAdapter creates a new event adapter.
func NewEventAdapter(sink EventSink) *EventAdapter {
	return &EventAdapter{sink: sink}
}

// Publish sends every event and reports the ones that failed.
func (a *EventAdapter) Publish(ctx context.Context, events []ports.AnalyticsEvent) error {
	var errs []error
	for _, ev := range events {
		props := make(map[string]string, len(ev.Properties)+1)
		for k, v := range ev.Properties {
			props[k] = v
		}
		props["session_id"] = ev.SessionID

		err := a.sink.Event(ctx, &api.Event{
			Name:       ev.Name,
			Properties: props,
			Timestamp:  timestamppb.New(ev.Timestamp),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to publish %s: %w", ev.Name, err))
		}
	}
	return errors.Join(errs...)
}

var _ ports.EventPort = (*EventAdapter)(nil)
