package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/venuegate/courier/internal/compose"
	"github.com/venuegate/courier/internal/domain"
	"github.com/venuegate/courier/internal/observability"
	"github.com/venuegate/courier/internal/provider"
	"github.com/venuegate/courier/internal/ratelimit"
	"github.com/venuegate/courier/internal/repository"
	"go.uber.org/zap"
)

// Outcome is the caller-visible result of a confirmation dispatch.
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeAlreadySent Outcome = "already_sent"
	OutcomeFailed      Outcome = "failed"
)

// ConfirmationRequest is one booking confirmation dispatch.
type ConfirmationRequest struct {
	RecipientAddress string
	RecipientName    string
	EventID          string
	BookingID        *string
	EventName        string
	EventDate        string
	EventTime        string
	Location         string
}

// DispatchResult references the delivery record the dispatch resolved to,
// which for already_sent is the pre-existing one.
type DispatchResult struct {
	Outcome   Outcome
	Record    *domain.DeliveryRecord
	ErrorText string
}

// EventSummary is the aggregate outcome report for one event.
type EventSummary struct {
	EventID string
	Total   int
	Counts  map[domain.Status]int
}

// DispatchService sends single confirmation messages and serves the read
// surface over delivery records.
type DispatchService struct {
	dispatcher
}

func NewDispatchService(
	deliveries repository.DeliveryRepository,
	gateway provider.Gateway,
	limiter ratelimit.RateLimiter,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*DispatchService, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	return &DispatchService{
		dispatcher: newDispatcher(deliveries, gateway, limiter, sendTimeout, logger),
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.setMetrics(metrics)
}

// SendConfirmation runs compose -> idempotency guard -> create(pending) ->
// gateway -> markSent/markFailed. The guard is a read-then-write check: two
// near-simultaneous requests for the same (recipient, event) can both pass it
// before either writes. Accepted; there is no storage-level lock.
func (s *DispatchService) SendConfirmation(ctx context.Context, req ConfirmationRequest) (*DispatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	address := strings.TrimSpace(req.RecipientAddress)
	eventID := strings.TrimSpace(req.EventID)
	if address == "" {
		return nil, fmt.Errorf("%w: recipient address is required", domain.ErrValidation)
	}
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}

	template := compose.Confirmation{
		RecipientName: req.RecipientName,
		EventName:     req.EventName,
		EventDate:     req.EventDate,
		EventTime:     req.EventTime,
		Location:      req.Location,
	}
	body, err := compose.Render(template)
	if err != nil {
		return nil, err
	}

	existing, err := s.deliveries.FindConfirmation(ctx, address, eventID)
	if err == nil {
		if s.metrics != nil {
			s.metrics.IncDuplicateDispatch(domain.KindConfirmation.String())
		}
		s.logger.Info("confirmation already sent, skipping dispatch",
			zap.String("recipient", address),
			zap.String("eventId", eventID),
			zap.String("existingDeliveryId", existing.ID),
		)
		return &DispatchResult{Outcome: OutcomeAlreadySent, Record: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("idempotency guard lookup failed: %w", err)
	}

	correlation := domain.Correlation{EventID: &eventID}
	if req.BookingID != nil && strings.TrimSpace(*req.BookingID) != "" {
		bookingID := strings.TrimSpace(*req.BookingID)
		correlation.BookingID = &bookingID
	}

	record, err := s.createPending(ctx, domain.KindConfirmation, correlation, address, strings.TrimSpace(req.RecipientName), template.Metadata())
	if err != nil {
		return nil, err
	}

	updated, sendErr := s.send(ctx, record, body)
	if sendErr != nil {
		if !provider.IsProviderError(sendErr) && !provider.IsTimeout(sendErr) {
			return nil, sendErr
		}
		return &DispatchResult{
			Outcome:   OutcomeFailed,
			Record:    updated,
			ErrorText: provider.Truncate(sendErr.Error()),
		}, nil
	}

	return &DispatchResult{Outcome: OutcomeSent, Record: updated}, nil
}

func (s *DispatchService) GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}
	return s.deliveries.GetByID(ctx, strings.TrimSpace(id))
}

func (s *DispatchService) List(ctx context.Context, params repository.ListParams) ([]domain.DeliveryRecord, int64, error) {
	return s.deliveries.List(ctx, params)
}

// GetEventSummary reports per-status delivery counts for one event. Read-only
// surface for dashboards; records are never mutated through it.
func (s *DispatchService) GetEventSummary(ctx context.Context, eventID string) (*EventSummary, error) {
	trimmed := strings.TrimSpace(eventID)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}

	counts, err := s.deliveries.CountByStatusForEvent(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	summary := &EventSummary{
		EventID: trimmed,
		Counts:  make(map[domain.Status]int, len(counts)),
	}
	for _, count := range counts {
		summary.Counts[count.Status] = count.Count
		summary.Total += count.Count
	}

	return summary, nil
}
