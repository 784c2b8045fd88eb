package nakama

import (
	"errors"
	"time"

	"beergame/internal/app"
	"beergame/internal/domain"
	"beergame/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

func toAnalyticsEvents(events []app.Event, now time.Time) []ports.AnalyticsEvent {
	out := make([]ports.AnalyticsEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, ports.AnalyticsEvent{
			Name:       "beergame_" + string(ev.Kind),
			SessionID:  ev.SessionID,
			Properties: ev.Properties,
			Timestamp:  now,
		})
	}
	return out
}

// toRuntimeError maps an error kind to the gRPC code Nakama reports to the client. Internal
// errors are not echoed back.
func toRuntimeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return runtime.NewError(err.Error(), codeInvalidArgument)
	case errors.Is(err, domain.ErrNotFound):
		return runtime.NewError(err.Error(), codeNotFound)
	case errors.Is(err, domain.ErrPrecondition):
		return runtime.NewError(err.Error(), codeFailedPrecondition)
	case errors.Is(err, app.ErrConflict):
		return runtime.NewError(err.Error(), codeAborted)
	default:
		return runtime.NewError("internal error", codeInternal)
	}
}

// clientError reports whether err was caused by the request rather than the server.
func clientError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrPrecondition) ||
		errors.Is(err, app.ErrConflict)
}
