package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/venuegate/courier/internal/domain"
	"github.com/venuegate/courier/internal/provider"
	"github.com/venuegate/courier/internal/repository"
)

// fakeDeliveryRepo is an in-memory DeliveryRepository honoring the same
// transition rules as the gorm implementation.
type fakeDeliveryRepo struct {
	mu      sync.Mutex
	records map[string]*domain.DeliveryRecord

	createErr error
	applyErr  error
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{records: make(map[string]*domain.DeliveryRecord)}
}

func (f *fakeDeliveryRepo) Create(ctx context.Context, r *domain.DeliveryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	clone := *r
	f.records[r.ID] = &clone
	return nil
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeDeliveryRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record := f.findByProviderMessageIDLocked(providerMessageID)
	if record == nil {
		return nil, domain.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeDeliveryRepo) findByProviderMessageIDLocked(providerMessageID string) *domain.DeliveryRecord {
	for _, record := range f.records {
		if record.ProviderMessageID != nil && *record.ProviderMessageID == providerMessageID {
			return record
		}
	}
	return nil
}

func (f *fakeDeliveryRepo) MarkSent(ctx context.Context, id string, providerMessageID string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if record.Status != domain.StatusPending {
		return nil, domain.ErrConflict
	}

	now := time.Now().UTC()
	record.Status = domain.StatusSent
	record.ProviderMessageID = &providerMessageID
	record.SentAt = &now
	record.UpdatedAt = now
	clone := *record
	return &clone, nil
}

func (f *fakeDeliveryRepo) MarkFailedAtDispatch(ctx context.Context, id string, errorText string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if record.Status != domain.StatusPending {
		return nil, domain.ErrConflict
	}

	record.Status = domain.StatusFailed
	record.ErrorText = &errorText
	record.UpdatedAt = time.Now().UTC()
	clone := *record
	return &clone, nil
}

func (f *fakeDeliveryRepo) ApplyWebhookStatus(ctx context.Context, providerMessageID string, status domain.Status, errorText *string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applyErr != nil {
		return nil, f.applyErr
	}

	record := f.findByProviderMessageIDLocked(providerMessageID)
	if record == nil {
		return nil, domain.ErrNotFound
	}

	if record.Status.IsTerminal() {
		clone := *record
		return &clone, nil
	}
	if !domain.CanTransition(record.Status, status) {
		clone := *record
		return &clone, domain.ErrConflict
	}

	now := time.Now().UTC()
	record.Status = status
	record.UpdatedAt = now
	if status == domain.StatusDelivered {
		record.DeliveredAt = &now
	}
	if status == domain.StatusFailed && errorText != nil {
		record.ErrorText = errorText
	}
	clone := *record
	return &clone, nil
}

func (f *fakeDeliveryRepo) FindConfirmation(ctx context.Context, recipient string, eventID string) (*domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.records {
		if record.Kind != domain.KindConfirmation {
			continue
		}
		if record.Recipient != recipient {
			continue
		}
		if record.EventID == nil || *record.EventID != eventID {
			continue
		}
		if record.Status == domain.StatusSent || record.Status == domain.StatusDelivered {
			clone := *record
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) ListConfirmedByEvent(ctx context.Context, eventID string) ([]domain.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var confirmed []domain.DeliveryRecord
	for _, record := range f.records {
		if record.Kind != domain.KindConfirmation {
			continue
		}
		if record.EventID == nil || *record.EventID != eventID {
			continue
		}
		if record.Status == domain.StatusSent || record.Status == domain.StatusDelivered {
			confirmed = append(confirmed, *record)
		}
	}
	return confirmed, nil
}

func (f *fakeDeliveryRepo) List(ctx context.Context, params repository.ListParams) ([]domain.DeliveryRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []domain.DeliveryRecord
	for _, record := range f.records {
		if params.Kind != nil && record.Kind != *params.Kind {
			continue
		}
		if params.Status != nil && record.Status != *params.Status {
			continue
		}
		if params.EventID != nil && (record.EventID == nil || *record.EventID != *params.EventID) {
			continue
		}
		matched = append(matched, *record)
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeDeliveryRepo) CountByStatusForEvent(ctx context.Context, eventID string) ([]repository.StatusCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[domain.Status]int)
	for _, record := range f.records {
		if record.EventID != nil && *record.EventID == eventID {
			counts[record.Status]++
		}
	}

	result := make([]repository.StatusCount, 0, len(counts))
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

func (f *fakeDeliveryRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeDeliveryRepo) byRecipient(recipient string) []domain.DeliveryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []domain.DeliveryRecord
	for _, record := range f.records {
		if record.Recipient == recipient {
			matched = append(matched, *record)
		}
	}
	return matched
}

// fakeGateway counts calls and delegates to sendFn.
type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	sendFn func(ctx context.Context, to string, body string) (*provider.SendResult, error)
}

func (f *fakeGateway) Send(ctx context.Context, to string, body string) (*provider.SendResult, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, to, body)
	}
	return &provider.SendResult{StatusCode: 200, MessageID: fmt.Sprintf("pm-%d", call)}, nil
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeLimiter always allows unless waitErr is set.
type fakeLimiter struct {
	waitErr error
}

func (f *fakeLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	return f.waitErr == nil, f.waitErr
}

func (f *fakeLimiter) Wait(ctx context.Context, scope string) error {
	return f.waitErr
}

// fakeCustomerRepo serves a preset recipient list.
type fakeCustomerRepo struct {
	recipients []domain.Recipient
	err        error
}

func (f *fakeCustomerRepo) BySegment(ctx context.Context, segment domain.Segment, cap int) ([]domain.Recipient, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recipients) > cap {
		return f.recipients[:cap], nil
	}
	return f.recipients, nil
}
