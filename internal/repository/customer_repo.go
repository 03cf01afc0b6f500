package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/venuegate/courier/internal/domain"
	"gorm.io/gorm"
)

// vipRole is the role tag marking a VIP customer in the collaborator store.
const vipRole = "vip"

// CustomerRepository resolves bounded recipient lists from the collaborator
// customer store. Read-only.
type CustomerRepository interface {
	BySegment(ctx context.Context, segment domain.Segment, cap int) ([]domain.Recipient, error)
}

type GormCustomerRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormCustomerRepo(db *gorm.DB) *GormCustomerRepo {
	return &GormCustomerRepo{db: db, now: time.Now}
}

// BySegment returns at most cap opted-in recipients matching the segment
// predicate. The cap is a hard safety limit, not pagination.
func (r *GormCustomerRepo) BySegment(ctx context.Context, segment domain.Segment, cap int) ([]domain.Recipient, error) {
	if cap <= 0 {
		cap = domain.DefaultSegmentCap
	}

	query := r.db.WithContext(ctx).
		Model(&CustomerModel{}).
		Where("opt_in = ?", true)

	switch segment {
	case domain.SegmentVIP:
		query = query.Where("role = ?", vipRole)
	case domain.SegmentRecent:
		cutoff := r.now().UTC().Add(-domain.RecentWindow)
		query = query.Where("last_active_at >= ?", cutoff)
	case domain.SegmentAll:
		// No filter beyond opt-in and the cap.
	default:
		return nil, fmt.Errorf("%w: invalid segment %q", domain.ErrValidation, segment)
	}

	var models []CustomerModel
	err := query.
		Order("last_active_at DESC").
		Limit(cap).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *customerModelToDomain(&models[i]))
	}

	return recipients, nil
}
