package repository

import (
	"context"
	"stillwave-marketplace/internal/model"
	"time"

	"gorm.io/gorm"
)

type SellerRepository interface {
	Create(ctx context.Context, seller *model.Seller) error
	Get(ctx context.Context, sellerID string) (*model.Seller, error)
	FindMany(ctx context.Context, sellerIDs []string) ([]*model.Seller, error)
	FindByStripeAccountID(ctx context.Context, accountID string) (*model.Seller, error)
	SetStripeAccount(ctx context.Context, sellerID, accountID string) error
	SetChargesEnabled(ctx context.Context, sellerID string, enabled bool) error
}

type sellerRepoImpl struct {
	db *gorm.DB
}

func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepoImpl{
		db: db,
	}
}

func (r *sellerRepoImpl) Create(ctx context.Context, seller *model.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

func (r *sellerRepoImpl) Get(ctx context.Context, sellerID string) (*model.Seller, error) {
	var seller model.Seller
	err := r.db.WithContext(ctx).
		Where("id = ?", sellerID).
		First(&seller).Error
	if err != nil {
		return nil, err
	}

	return &seller, nil
}

func (r *sellerRepoImpl) FindMany(ctx context.Context, sellerIDs []string) ([]*model.Seller, error) {
	var sellers []*model.Seller
	err := r.db.WithContext(ctx).
		Where("id IN ?", sellerIDs).
		Find(&sellers).Error

	if err != nil {
		return nil, err
	}

	return sellers, nil
}

func (r *sellerRepoImpl) FindByStripeAccountID(ctx context.Context, accountID string) (*model.Seller, error) {
	var seller model.Seller
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ?", accountID).
		First(&seller).Error
	if err != nil {
		return nil, err
	}

	return &seller, nil
}

func (r *sellerRepoImpl) SetStripeAccount(ctx context.Context, sellerID, accountID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"stripe_account_id": accountID,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *sellerRepoImpl) SetChargesEnabled(ctx context.Context, sellerID string, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"charges_enabled": enabled,
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
