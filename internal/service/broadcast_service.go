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

const defaultFanoutDeadline = 5 * time.Minute

// BroadcastReport is the aggregate outcome of one broadcast run.
// SentCount + FailedCount == TotalCustomers.
type BroadcastReport struct {
	SentCount      int
	FailedCount    int
	TotalCustomers int
}

// BroadcastService fans a broadcast out to a resolved segment. Broadcasts are
// not deduplicated: re-running the same broadcast resends to the full segment.
type BroadcastService struct {
	dispatcher
	customers   repository.CustomerRepository
	concurrency int
	deadline    time.Duration
	segmentCap  int
}

func NewBroadcastService(
	deliveries repository.DeliveryRepository,
	customers repository.CustomerRepository,
	gateway provider.Gateway,
	limiter ratelimit.RateLimiter,
	concurrency int,
	sendTimeout time.Duration,
	deadline time.Duration,
	segmentCap int,
	logger *zap.Logger,
) (*BroadcastService, error) {
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer repository is required")
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
	if segmentCap <= 0 {
		segmentCap = domain.DefaultSegmentCap
	}

	return &BroadcastService{
		dispatcher:  newDispatcher(deliveries, gateway, limiter, sendTimeout, logger),
		customers:   customers,
		concurrency: concurrency,
		deadline:    deadline,
		segmentCap:  segmentCap,
	}, nil
}

func (s *BroadcastService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.setMetrics(metrics)
}

// Run resolves the segment and dispatches the broadcast to each recipient
// independently. A failed recipient never aborts the rest of the run.
func (s *BroadcastService) Run(ctx context.Context, segment domain.Segment, messageBody string) (*BroadcastReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !segment.IsValid() {
		return nil, fmt.Errorf("%w: invalid segment %q", domain.ErrValidation, segment)
	}
	if strings.TrimSpace(messageBody) == "" {
		return nil, fmt.Errorf("%w: message body is required", domain.ErrValidation)
	}

	recipients, err := s.customers.BySegment(ctx, segment, s.segmentCap)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment %q: %w", segment, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	sent, failed := runFanout(runCtx, s.concurrency, len(recipients), s.logger, func(ctx context.Context, i int) error {
		return s.dispatchToRecipient(ctx, recipients[i], messageBody)
	})

	report := &BroadcastReport{
		SentCount:      sent,
		FailedCount:    failed,
		TotalCustomers: len(recipients),
	}
	s.logger.Info("broadcast run completed",
		zap.String("segment", segment.String()),
		zap.Int("sent", report.SentCount),
		zap.Int("failed", report.FailedCount),
		zap.Int("total", report.TotalCustomers),
	)

	return report, nil
}

func (s *BroadcastService) dispatchToRecipient(ctx context.Context, recipient domain.Recipient, messageBody string) error {
	template := compose.Broadcast{
		RecipientName: recipient.Name,
		Body:          messageBody,
	}
	body, err := compose.Render(template)
	if err != nil {
		return err
	}

	record, err := s.createPending(ctx, domain.KindBroadcast, domain.Correlation{}, recipient.Phone, recipient.Name, template.Metadata())
	if err != nil {
		s.logger.Error("failed to create broadcast delivery record",
			zap.String("recipient", recipient.Phone),
			zap.Error(err),
		)
		return err
	}

	_, err = s.send(ctx, record, body)
	return err
}
