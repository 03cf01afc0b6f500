package repository

import (
	"context"
	"errors"
	"time"

	"github.com/venuegate/courier/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Kind     *domain.Kind
	Status   *domain.Status
	EventID  *string
	Page     int
	PageSize int
}

type StatusCount struct {
	Status domain.Status `gorm:"column:status"`
	Count  int           `gorm:"column:count"`
}

type DeliveryRepository interface {
	Create(ctx context.Context, r *domain.DeliveryRecord) error
	GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.DeliveryRecord, error)
	MarkSent(ctx context.Context, id string, providerMessageID string) (*domain.DeliveryRecord, error)
	MarkFailedAtDispatch(ctx context.Context, id string, errorText string) (*domain.DeliveryRecord, error)
	ApplyWebhookStatus(ctx context.Context, providerMessageID string, status domain.Status, errorText *string) (*domain.DeliveryRecord, error)
	FindConfirmation(ctx context.Context, recipient string, eventID string) (*domain.DeliveryRecord, error)
	ListConfirmedByEvent(ctx context.Context, eventID string) ([]domain.DeliveryRecord, error)
	List(ctx context.Context, params ListParams) ([]domain.DeliveryRecord, int64, error)
	CountByStatusForEvent(ctx context.Context, eventID string) ([]StatusCount, error)
}

type GormDeliveryRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db, now: time.Now}
}

func (r *GormDeliveryRepo) Create(ctx context.Context, record *domain.DeliveryRecord) error {
	model := deliveryModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if record != nil {
		*record = *deliveryModelToDomain(model)
	}
	return nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	var model DeliveryRecordModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.DeliveryRecord, error) {
	var model DeliveryRecordModel
	err := r.db.WithContext(ctx).
		Where("provider_message_id = ?", providerMessageID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) MarkSent(ctx context.Context, id string, providerMessageID string) (*domain.DeliveryRecord, error) {
	sentAt := r.now().UTC()
	result := r.db.WithContext(ctx).
		Model(&DeliveryRecordModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":              domain.StatusSent,
			"provider_message_id": providerMessageID,
			"sent_at":             sentAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrConflict
	}
	return r.GetByID(ctx, id)
}

func (r *GormDeliveryRepo) MarkFailedAtDispatch(ctx context.Context, id string, errorText string) (*domain.DeliveryRecord, error) {
	result := r.db.WithContext(ctx).
		Model(&DeliveryRecordModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":     domain.StatusFailed,
			"error_text": errorText,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrConflict
	}
	return r.GetByID(ctx, id)
}

// ApplyWebhookStatus advances a record by provider message id. Terminal
// records are returned unchanged so duplicate or out-of-order callbacks are
// idempotent; a non-forward transition returns ErrConflict for the caller to
// log and drop. The update is a compare-and-set on the loaded status, so a
// concurrent writer can never be overwritten with stale state.
func (r *GormDeliveryRepo) ApplyWebhookStatus(ctx context.Context, providerMessageID string, status domain.Status, errorText *string) (*domain.DeliveryRecord, error) {
	record, err := r.GetByProviderMessageID(ctx, providerMessageID)
	if err != nil {
		return nil, err
	}

	if record.Status.IsTerminal() {
		return record, nil
	}
	if !domain.CanTransition(record.Status, status) {
		return record, domain.ErrConflict
	}

	updates := map[string]any{"status": status}
	if status == domain.StatusDelivered {
		updates["delivered_at"] = r.now().UTC()
	}
	if status == domain.StatusFailed && errorText != nil {
		updates["error_text"] = *errorText
	}

	result := r.db.WithContext(ctx).
		Model(&DeliveryRecordModel{}).
		Where("provider_message_id = ? AND status = ?", providerMessageID, record.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race to a concurrent callback; report the winner's state.
		current, loadErr := r.GetByProviderMessageID(ctx, providerMessageID)
		if loadErr != nil {
			return nil, loadErr
		}
		return current, domain.ErrConflict
	}

	return r.GetByProviderMessageID(ctx, providerMessageID)
}

func (r *GormDeliveryRepo) FindConfirmation(ctx context.Context, recipient string, eventID string) (*domain.DeliveryRecord, error) {
	var model DeliveryRecordModel
	err := r.db.WithContext(ctx).
		Where("recipient = ? AND event_id = ? AND kind = ? AND status IN ?",
			recipient, eventID, domain.KindConfirmation,
			[]domain.Status{domain.StatusSent, domain.StatusDelivered}).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) ListConfirmedByEvent(ctx context.Context, eventID string) ([]domain.DeliveryRecord, error) {
	var models []DeliveryRecordModel
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND kind = ? AND status IN ?",
			eventID, domain.KindConfirmation,
			[]domain.Status{domain.StatusSent, domain.StatusDelivered}).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.DeliveryRecord, 0, len(models))
	for i := range models {
		records = append(records, *deliveryModelToDomain(&models[i]))
	}
	return records, nil
}

func (r *GormDeliveryRepo) List(ctx context.Context, params ListParams) ([]domain.DeliveryRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&DeliveryRecordModel{})

	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.EventID != nil {
		query = query.Where("event_id = ?", *params.EventID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []DeliveryRecordModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.DeliveryRecord, 0, len(models))
	for i := range models {
		records = append(records, *deliveryModelToDomain(&models[i]))
	}

	return records, total, nil
}

func (r *GormDeliveryRepo) CountByStatusForEvent(ctx context.Context, eventID string) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&DeliveryRecordModel{}).
		Select("status, COUNT(*) as count").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
