package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/bank-auth-service/internal/config"
	"github.com/spec-kit/bank-auth-service/internal/events"
)

// Publisher is the part of a redis client the audit service uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

var auditedEvents = []events.EventType{events.EventLoginSucceeded, events.EventLoginFailed, events.EventUserCreated}

// AuditService records auth events to the log and, when configured, to a Redis channel.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	publisher  Publisher
	cfg        config.EventsConfig
}

// NewAuditService creates the service. publisher may be nil.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, publisher Publisher, cfg config.EventsConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(a.handleLog, auditedEvents...)
	a.dispatcher.Subscribe(a.handlePublish, auditedEvents...)
}

func (a *AuditService) handleLog(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject_id", event.SubjectID),
	}
	switch p := event.Payload.(type) {
	case events.LoginFailedPayload:
		fields = append(fields, zap.String("identifier_hash", p.IdentifierHash), zap.String("reason", p.Reason))
		a.logger.Warn("login failed", fields...)
		return nil
	case events.UserCreatedPayload:
		fields = append(fields, zap.String("identifier_hash", p.IdentifierHash))
	}
	a.logger.Info("auth event", fields...)
	return nil
}

func (a *AuditService) handlePublish(ctx context.Context, event events.Event) error {
	channel := strings.TrimSpace(a.cfg.RedisChannel)
	if a.publisher == nil || channel == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := a.publisher.Publish(ctx, channel, body).Err(); err != nil {
		a.logger.Warn("publish auth event", zap.String("event_type", string(event.Type)), zap.Error(err))
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
