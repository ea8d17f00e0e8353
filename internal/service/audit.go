package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/auth"
	"github.com/spec-kit/storefront-bff/internal/events"
)

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, eventType events.EventType, access *auth.Access, payload interface{}) {
	if dispatcher == nil {
		return
	}
	actor := events.Actor{}
	if access != nil && access.Identity != nil {
		id := access.SubjectID()
		actor.SubjectID = &id
		actor.Role = string(access.Identity.Role())
	}
	if err := dispatcher.Publish(ctx, events.New(eventType, actor, payload)); err != nil {
		logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
