package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/venuegate/courier/internal/domain"
	"github.com/venuegate/courier/internal/observability"
	"github.com/venuegate/courier/internal/provider"
	"github.com/venuegate/courier/internal/repository"
	"go.uber.org/zap"
)

// StatusCallback is one asynchronous delivery-status callback from the
// provider.
type StatusCallback struct {
	ProviderMessageID string
	ProviderStatus    string
	ErrorCode         string
	ErrorText         string
}

func (c StatusCallback) Validate() error {
	if strings.TrimSpace(c.ProviderMessageID) == "" {
		return fmt.Errorf("%w: providerMessageId is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.ProviderStatus) == "" {
		return fmt.Errorf("%w: providerStatus is required", domain.ErrValidation)
	}
	return nil
}

// WebhookService advances delivery records through their state machine from
// provider callbacks. Misses, duplicates, and stale reports are absorbed:
// they are logged, never surfaced back to the provider.
type WebhookService struct {
	deliveries repository.DeliveryRepository
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func NewWebhookService(deliveries repository.DeliveryRepository, logger *zap.Logger) (*WebhookService, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookService{
		deliveries: deliveries,
		logger:     logger,
	}, nil
}

func (s *WebhookService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Ingest applies one callback. Only a validation failure is returned as an
// error; every other anomaly resolves to nil so the transport layer can
// acknowledge and stop the provider from retrying.
func (s *WebhookService) Ingest(ctx context.Context, callback StatusCallback) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := callback.Validate(); err != nil {
		s.countEvent("malformed")
		return err
	}

	providerMessageID := strings.TrimSpace(callback.ProviderMessageID)

	status, ok := mapProviderStatus(callback.ProviderStatus)
	if !ok {
		s.countEvent("ignored")
		s.logger.Warn("unknown provider status, ignoring callback",
			zap.String("providerMessageId", providerMessageID),
			zap.String("providerStatus", callback.ProviderStatus),
		)
		return nil
	}

	var errText *string
	if status == domain.StatusFailed {
		text := failureText(callback)
		errText = &text
	}

	record, err := s.deliveries.ApplyWebhookStatus(ctx, providerMessageID, status, errText)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.countEvent("miss")
		s.logger.Warn("callback for unknown provider message id",
			zap.String("providerMessageId", providerMessageID),
			zap.String("providerStatus", callback.ProviderStatus),
		)
		return nil
	case errors.Is(err, domain.ErrConflict):
		s.countEvent("stale")
		s.logger.Info("stale callback ignored",
			zap.String("providerMessageId", providerMessageID),
			zap.String("providerStatus", callback.ProviderStatus),
			zap.String("currentStatus", record.Status.String()),
		)
		return nil
	case err != nil:
		s.countEvent("error")
		s.logger.Error("failed to apply callback status",
			zap.String("providerMessageId", providerMessageID),
			zap.Error(err),
		)
		return nil
	}

	if record.Status != status {
		// Terminal record left untouched; duplicate or out-of-order redelivery.
		s.countEvent("terminal_noop")
		s.logger.Info("callback ignored for terminal record",
			zap.String("providerMessageId", providerMessageID),
			zap.String("currentStatus", record.Status.String()),
			zap.String("reportedStatus", status.String()),
		)
		return nil
	}

	s.countEvent("applied")
	s.logger.Info("delivery status advanced",
		zap.String("deliveryId", record.ID),
		zap.String("providerMessageId", providerMessageID),
		zap.String("status", record.Status.String()),
	)
	return nil
}

func (s *WebhookService) countEvent(result string) {
	if s.metrics != nil {
		s.metrics.IncWebhookEvent(result)
	}
}

// mapProviderStatus folds provider-specific status strings onto the delivery
// state machine. Read receipts arrive on already-delivered messages, so read
// maps to delivered.
func mapProviderStatus(providerStatus string) (domain.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "sent", "accepted":
		return domain.StatusSent, true
	case "delivered", "read":
		return domain.StatusDelivered, true
	case "failed", "error", "undelivered", "undeliverable":
		return domain.StatusFailed, true
	}
	return "", false
}

func failureText(callback StatusCallback) string {
	text := strings.TrimSpace(callback.ErrorText)
	if code := strings.TrimSpace(callback.ErrorCode); code != "" {
		if text == "" {
			text = fmt.Sprintf("provider error code %s", code)
		} else {
			text = fmt.Sprintf("%s: %s", code, text)
		}
	}
	if text == "" {
		text = "delivery failed"
	}
	return provider.Truncate(text)
}
