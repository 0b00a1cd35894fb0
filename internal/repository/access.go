package repository

import (
	"context"
	"stillwave-marketplace/internal/model"
	"time"

	"gorm.io/gorm"
)

type AccessRepository interface {
	Create(ctx context.Context, tx *gorm.DB, grant *model.TrackAccess) error
	RevokeByPurchaseID(ctx context.Context, tx *gorm.DB, purchaseID string) error
	ListForUser(ctx context.Context, userID string) ([]*model.TrackAccess, error)
	ListForGuestCart(ctx context.Context, guestCartID string) ([]*model.TrackAccess, error)
}

type accessRepoImpl struct {
	db *gorm.DB
}

func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepoImpl{
		db: db,
	}
}

func (r *accessRepoImpl) Create(ctx context.Context, tx *gorm.DB, grant *model.TrackAccess) error {
	return tx.WithContext(ctx).Create(grant).Error
}

// RevokeByPurchaseID sets the revocation timestamp on every grant of the
// purchase. Grants are never deleted.
func (r *accessRepoImpl) RevokeByPurchaseID(ctx context.Context, tx *gorm.DB, purchaseID string) error {
	return tx.WithContext(ctx).Model(&model.TrackAccess{}).
		Where("purchase_id = ? AND revoked_at IS NULL", purchaseID).
		Update("revoked_at", time.Now()).Error
}

func (r *accessRepoImpl) ListForUser(ctx context.Context, userID string) ([]*model.TrackAccess, error) {
	var grants []*model.TrackAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Find(&grants).Error

	if err != nil {
		return nil, err
	}

	return grants, nil
}

func (r *accessRepoImpl) ListForGuestCart(ctx context.Context, guestCartID string) ([]*model.TrackAccess, error) {
	var grants []*model.TrackAccess
	err := r.db.WithContext(ctx).
		Where("guest_cart_id = ? AND user_id IS NULL AND revoked_at IS NULL", guestCartID).
		Find(&grants).Error

	if err != nil {
		return nil, err
	}

	return grants, nil
}
