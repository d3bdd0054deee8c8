package service

import (
	"context"

	"github.com/openblog/microblog/pkg/log"
	"github.com/openblog/microblog/pkg/pubsub"
)

// publish emits a domain event on the bus, best-effort. A nil publisher means
// the event bus is disabled.
func publish(ctx context.Context, pub pubsub.Publisher, channel, eventType, subject string, payload interface{}) {
	if pub == nil {
		return
	}

	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, subject, payload)
	if err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := pub.Publish(ctx, channel, event); err != nil {
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
