package service

import (
	"context"
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

// FeedbackReport is the aggregate outcome of one feedback campaign run over
// the confirmed-recipient set of an event.
type FeedbackReport struct {
	Sent   int
	Failed int
	Total  int
}

// FeedbackService dispatches post-event survey requests to every recipient
// whose confirmation reached sent or delivered. Runs are not deduplicated:
// re-triggering the campaign resends to everyone.
type FeedbackService struct {
	dispatcher
	concurrency int
	deadline    time.Duration
}

func NewFeedbackService(
	deliveries repository.DeliveryRepository,
	gateway provider.Gateway,
	limiter ratelimit.RateLimiter,
	concurrency int,
	sendTimeout time.Duration,
	deadline time.Duration,
	logger *zap.Logger,
) (*FeedbackService, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if deadline <= 0 {
		deadline = defaultFanoutDeadline
	}

	return &FeedbackService{
		dispatcher:  newDispatcher(deliveries, gateway, limiter, sendTimeout, logger),
		concurrency: concurrency,
		deadline:    deadline,
	}, nil
}

func (s *FeedbackService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.setMetrics(metrics)
}

// Run loads the confirmed recipients for the event and dispatches a
// feedback-kind message to each. Zero confirmed recipients means zero
// provider calls.
func (s *FeedbackService) Run(ctx context.Context, eventID string, surveyLink string) (*FeedbackReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	trimmedEventID := strings.TrimSpace(eventID)
	if trimmedEventID == "" {
		return nil, fmt.Errorf("%w: event id is required", domain.ErrValidation)
	}

	confirmed, err := s.deliveries.ListConfirmedByEvent(ctx, trimmedEventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmed recipients: %w", err)
	}
	if len(confirmed) == 0 {
		return &FeedbackReport{}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	link := strings.TrimSpace(surveyLink)
	sent, failed := runFanout(runCtx, s.concurrency, len(confirmed), s.logger, func(ctx context.Context, i int) error {
		return s.dispatchFeedback(ctx, confirmed[i], trimmedEventID, link)
	})

	report := &FeedbackReport{
		Sent:   sent,
		Failed: failed,
		Total:  len(confirmed),
	}
	s.logger.Info("feedback campaign completed",
		zap.String("eventId", trimmedEventID),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("total", report.Total),
	)

	return report, nil
}

func (s *FeedbackService) dispatchFeedback(ctx context.Context, confirmation domain.DeliveryRecord, eventID string, surveyLink string) error {
	// The confirmation's audit snapshot carries the human-readable event name.
	eventName := confirmation.TemplateMetadata["eventName"]
	if strings.TrimSpace(eventName) == "" {
		eventName = eventID
	}

	template := compose.Feedback{
		RecipientName: confirmation.RecipientName,
		EventName:     eventName,
		SurveyLink:    surveyLink,
	}
	body, err := compose.Render(template)
	if err != nil {
		return err
	}

	correlation := domain.Correlation{EventID: &eventID, BookingID: confirmation.BookingID}
	record, err := s.createPending(ctx, domain.KindFeedback, correlation, confirmation.Recipient, confirmation.RecipientName, template.Metadata())
	if err != nil {
		s.logger.Error("failed to create feedback delivery record",
			zap.String("recipient", confirmation.Recipient),
			zap.String("eventId", eventID),
			zap.Error(err),
		)
		return err
	}

	_, err = s.send(ctx, record, body)
	return err
}
