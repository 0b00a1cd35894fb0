package repository

import (
	"context"
	"stillwave-marketplace/internal/model"
	"time"

	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error
	ExistsBySessionID(ctx context.Context, sessionID string) (bool, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Purchase, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, purchaseID string) error
	MarkRefunded(ctx context.Context, tx *gorm.DB, purchaseID string, amount int64) error
	RecordPartialRefund(ctx context.Context, tx *gorm.DB, purchaseID string, amount int64) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.PurchaseItem) error
	GetItems(ctx context.Context, purchaseID string) ([]*model.PurchaseItem, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

func (r *purchaseRepoImpl) Create(ctx context.Context, tx *gorm.DB, purchase *model.Purchase) error {
	return tx.WithContext(ctx).Create(purchase).Error
}

func (r *purchaseRepoImpl) ExistsBySessionID(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("stripe_session_id = ?", sessionID).
		Count(&count).Error

	return count > 0, err
}

func (r *purchaseRepoImpl) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}

	return &purchase, nil
}

// MarkSucceeded flips a processing purchase to succeeded. The status
// filter keeps the transition one-way.
func (r *purchaseRepoImpl) MarkSucceeded(ctx context.Context, tx *gorm.DB, purchaseID string) error {
	result := tx.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ? AND status = ?", purchaseID, model.PurchaseStatusProcessing).
		Updates(map[string]interface{}{
			"status":       model.PurchaseStatusSucceeded,
			"completed_at": time.Now(),
			"updated_at":   time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *purchaseRepoImpl) MarkRefunded(ctx context.Context, tx *gorm.DB, purchaseID string, amount int64) error {
	result := tx.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ? AND status = ?", purchaseID, model.PurchaseStatusSucceeded).
		Updates(map[string]interface{}{
			"status":          model.PurchaseStatusRefunded,
			"refunded_amount": amount,
			"refunded_at":     time.Now(),
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// RecordPartialRefund stores the running refunded amount without touching
// status, access grants or ledger entries.
func (r *purchaseRepoImpl) RecordPartialRefund(ctx context.Context, tx *gorm.DB, purchaseID string, amount int64) error {
	result := tx.WithContext(ctx).Model(&model.Purchase{}).
		Where("id = ?", purchaseID).
		Updates(map[string]interface{}{
			"refunded_amount": amount,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *purchaseRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.PurchaseItem) error {
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *purchaseRepoImpl) GetItems(ctx context.Context, purchaseID string) ([]*model.PurchaseItem, error) {
	var items []*model.PurchaseItem
	err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}
