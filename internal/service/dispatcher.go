package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/venuegate/courier/internal/domain"
	"github.com/venuegate/courier/internal/observability"
	"github.com/venuegate/courier/internal/provider"
	"github.com/venuegate/courier/internal/ratelimit"
	"github.com/venuegate/courier/internal/repository"
	"go.uber.org/zap"
)

const (
	// providerScope is the rate limit scope shared by every outbound call.
	providerScope = "whatsapp"

	defaultSendTimeout = 10 * time.Second
)

// dispatcher runs the create(pending) -> gateway -> markSent/markFailed chain
// for a single message. Shared by confirmation, broadcast, and feedback flows.
type dispatcher struct {
	deliveries  repository.DeliveryRepository
	gateway     provider.Gateway
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	sendTimeout time.Duration
	now         func() time.Time
}

func newDispatcher(
	deliveries repository.DeliveryRepository,
	gateway provider.Gateway,
	limiter ratelimit.RateLimiter,
	sendTimeout time.Duration,
	logger *zap.Logger,
) dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return dispatcher{
		deliveries:  deliveries,
		gateway:     gateway,
		limiter:     limiter,
		logger:      logger,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

func (d *dispatcher) setMetrics(metrics *observability.Metrics) {
	d.metrics = metrics
}

// createPending persists the delivery record before any provider contact, so
// every attempted send leaves a durable trail even if the process dies mid-call.
func (d *dispatcher) createPending(
	ctx context.Context,
	kind domain.Kind,
	correlation domain.Correlation,
	recipient string,
	recipientName string,
	templateMetadata map[string]string,
) (*domain.DeliveryRecord, error) {
	record := &domain.DeliveryRecord{
		ID:               uuid.NewString(),
		Kind:             kind,
		EventID:          correlation.EventID,
		BookingID:        correlation.BookingID,
		Recipient:        recipient,
		RecipientName:    recipientName,
		Status:           domain.StatusPending,
		TemplateMetadata: templateMetadata,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := d.deliveries.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// send submits one pending record to the provider and advances it to sent or
// failed. The returned error is the send error, if any; the record mutation
// has already happened by the time send returns.
func (d *dispatcher) send(ctx context.Context, record *domain.DeliveryRecord, body string) (*domain.DeliveryRecord, error) {
	kindLabel := record.Kind.String()
	if d.metrics != nil {
		d.metrics.IncDispatchInFlight(kindLabel)
		defer d.metrics.DecDispatchInFlight(kindLabel)
	}

	if err := d.limiter.Wait(ctx, providerScope); err != nil {
		return d.failDispatch(ctx, record, err, "rate_limit_wait")
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	sendStart := d.now()
	result, sendErr := d.gateway.Send(sendCtx, record.Recipient, body)
	if d.metrics != nil {
		d.metrics.ObserveMessageSendDuration(kindLabel, d.now().Sub(sendStart))
	}

	if sendErr != nil {
		reason := "provider_error"
		if provider.IsTimeout(sendErr) {
			reason = "timeout"
		}
		return d.failDispatch(ctx, record, sendErr, reason)
	}

	updated, err := d.deliveries.MarkSent(ctx, record.ID, result.MessageID)
	if err != nil {
		d.logger.Error("failed to mark delivery as sent",
			zap.String("deliveryId", record.ID),
			zap.String("providerMessageId", result.MessageID),
			zap.Error(err),
		)
		return record, err
	}

	if d.metrics != nil {
		d.metrics.IncMessageSent(kindLabel)
	}
	return updated, nil
}

func (d *dispatcher) failDispatch(ctx context.Context, record *domain.DeliveryRecord, sendErr error, reason string) (*domain.DeliveryRecord, error) {
	errText := provider.Truncate(sendErr.Error())

	updated, markErr := d.deliveries.MarkFailedAtDispatch(ctx, record.ID, errText)
	if markErr != nil {
		d.logger.Error("failed to mark delivery as failed",
			zap.String("deliveryId", record.ID),
			zap.Error(markErr),
		)
		updated = record
	}

	if d.metrics != nil {
		d.metrics.IncMessageFailed(record.Kind.String(), reason)
	}
	d.logger.Warn("dispatch failed",
		zap.String("deliveryId", record.ID),
		zap.String("kind", record.Kind.String()),
		zap.String("recipient", record.Recipient),
		zap.String("reason", reason),
		zap.Error(sendErr),
	)

	return updated, sendErr
}
