package service

import (
	"context"
	"fmt"
	"stillwave-marketplace/internal/client"
	"stillwave-marketplace/internal/dto"
	"stillwave-marketplace/internal/model"
	"stillwave-marketplace/internal/repository"

	"github.com/google/uuid"
)

type SellerService interface {
	CreateSeller(ctx context.Context, displayName string) (*model.Seller, error)
	OnboardSeller(ctx context.Context, sellerID string) (string, error)
	SellerStatus(ctx context.Context, sellerID string) (*dto.SellerStatusResponse, error)
}

type sellerServiceImpl struct {
	stripeClient client.StripeClient
	sellerRepo   repository.SellerRepository
	baseURL      string
}

func NewSellerService(stripeClient client.StripeClient, sellerRepo repository.SellerRepository, baseURL string) SellerService {
	return &sellerServiceImpl{
		stripeClient: stripeClient,
		sellerRepo:   sellerRepo,
		baseURL:      baseURL,
	}
}

func (s *sellerServiceImpl) CreateSeller(ctx context.Context, displayName string) (*model.Seller, error) {
	seller := &model.Seller{
		ID:          uuid.NewString(),
		DisplayName: displayName,
	}
	if err := s.sellerRepo.Create(ctx, seller); err != nil {
		return nil, fmt.Errorf("create seller: %w", err)
	}

	return seller, nil
}

// OnboardSeller ensures the seller has a connected payout account and
// returns the hosted onboarding URL for it.
func (s *sellerServiceImpl) OnboardSeller(ctx context.Context, sellerID string) (string, error) {
	seller, err := s.sellerRepo.Get(ctx, sellerID)
	if err != nil {
		return "", fmt.Errorf("load seller: %w", err)
	}

	accountID := seller.StripeAccountID
	if accountID == "" {
		account, err := s.stripeClient.CreateConnectAccount(ctx)
		if err != nil {
			return "", fmt.Errorf("create connect account: %w", err)
		}
		accountID = account.ID

		if err := s.sellerRepo.SetStripeAccount(ctx, sellerID, accountID); err != nil {
			return "", fmt.Errorf("store connect account: %w", err)
		}
	}

	link, err := s.stripeClient.CreateAccountLink(
		ctx,
		accountID,
		s.baseURL+"/sellers/onboarding/complete",
		s.baseURL+"/sellers/onboarding/refresh",
	)
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}

	return link.URL, nil
}

// SellerStatus refreshes eligibility from the processor before reporting
// it, so a seller who just finished onboarding is payable immediately.
func (s *sellerServiceImpl) SellerStatus(ctx context.Context, sellerID string) (*dto.SellerStatusResponse, error) {
	seller, err := s.sellerRepo.Get(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("load seller: %w", err)
	}

	if seller.StripeAccountID != "" {
		account, err := s.stripeClient.GetAccount(ctx, seller.StripeAccountID)
		if err != nil {
			return nil, fmt.Errorf("fetch connect account: %w", err)
		}
		if account.ChargesEnabled != seller.ChargesEnabled {
			if err := s.sellerRepo.SetChargesEnabled(ctx, sellerID, account.ChargesEnabled); err != nil {
				return nil, fmt.Errorf("update seller eligibility: %w", err)
			}
			seller.ChargesEnabled = account.ChargesEnabled
		}
	}

	return &dto.SellerStatusResponse{
		SellerID:       seller.ID,
		Connected:      seller.StripeAccountID != "",
		ChargesEnabled: seller.ChargesEnabled,
	}, nil
}
