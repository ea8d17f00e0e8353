package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-bff/internal/events"
)

// AuditService writes security and audit events to a dedicated log stream.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAccessDenied, a.handleAccessDenied)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	for _, t := range []events.EventType{
		events.EventUserRegistered,
		events.EventLoginSucceeded,
		events.EventOrderCreated,
		events.EventOrderCancelled,
		events.EventProductModified,
	} {
		a.dispatcher.Subscribe(t, a.handleRecord)
	}
}

func (a *AuditService) handleAccessDenied(_ context.Context, event events.Event) error {
	a.logger.Warn("AccessDenied", a.fields(event)...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("LoginFailed", a.fields(event)...)
	return nil
}

func (a *AuditService) handleRecord(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
	if event.Actor.SubjectID != nil {
		fields = append(fields, zap.Int64("subject_id", *event.Actor.SubjectID))
	}
	if event.Actor.Role != "" {
		fields = append(fields, zap.String("role", event.Actor.Role))
	}
	if event.Actor.IP != "" {
		fields = append(fields, zap.String("ip", event.Actor.IP))
	}
	return fields
}
