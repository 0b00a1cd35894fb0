package repository

import (
	"context"
	"stillwave-marketplace/internal/model"
	"time"

	"gorm.io/gorm"
)

type EarningsRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *model.EarningsLedgerEntry) error
	MarkRefundedByPurchaseID(ctx context.Context, tx *gorm.DB, purchaseID string) error
	ListByPurchaseID(ctx context.Context, purchaseID string) ([]*model.EarningsLedgerEntry, error)
	ListBySellerID(ctx context.Context, sellerID string) ([]*model.EarningsLedgerEntry, error)
}

type earningsRepoImpl struct {
	db *gorm.DB
}

func NewEarningsRepository(db *gorm.DB) EarningsRepository {
	return &earningsRepoImpl{
		db: db,
	}
}

func (r *earningsRepoImpl) Create(ctx context.Context, tx *gorm.DB, entry *model.EarningsLedgerEntry) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *earningsRepoImpl) MarkRefundedByPurchaseID(ctx context.Context, tx *gorm.DB, purchaseID string) error {
	return tx.WithContext(ctx).Model(&model.EarningsLedgerEntry{}).
		Where("purchase_id = ? AND status = ?", purchaseID, model.EarningsStatusPending).
		Updates(map[string]interface{}{
			"status":     model.EarningsStatusRefunded,
			"updated_at": time.Now(),
		}).Error
}

func (r *earningsRepoImpl) ListByPurchaseID(ctx context.Context, purchaseID string) ([]*model.EarningsLedgerEntry, error) {
	var entries []*model.EarningsLedgerEntry
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Find(&entries).Error

	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *earningsRepoImpl) ListBySellerID(ctx context.Context, sellerID string) ([]*model.EarningsLedgerEntry, error) {
	var entries []*model.EarningsLedgerEntry
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&entries).Error

	if err != nil {
		return nil, err
	}

	return entries, nil
}
