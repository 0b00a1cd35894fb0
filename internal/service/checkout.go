package service

import (
	"context"
	"encoding/json"
	"fmt"
	"stillwave-marketplace/internal/client"
	"stillwave-marketplace/internal/dto"
	"stillwave-marketplace/internal/model"
	"stillwave-marketplace/internal/repository"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
)

// Sessions expire after a short fixed window to bound cart staleness.
const sessionExpiry = 30 * time.Minute

type CheckoutService interface {
	CreateSession(ctx context.Context, userID *string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type checkoutServiceImpl struct {
	stripeClient      client.StripeClient
	trackRepo         repository.TrackRepository
	sellerRepo        repository.SellerRepository
	baseURL           string
	commissionPercent float64
}

func NewCheckoutService(
	stripeClient client.StripeClient,
	trackRepo repository.TrackRepository,
	sellerRepo repository.SellerRepository,
	baseURL string,
	commissionPercent float64,
) CheckoutService {
	return &checkoutServiceImpl{
		stripeClient:      stripeClient,
		trackRepo:         trackRepo,
		sellerRepo:        sellerRepo,
		baseURL:           baseURL,
		commissionPercent: commissionPercent,
	}
}

// CreateSession validates the cart against authoritative records and
// builds a processor-hosted checkout session. The full per-item
// settlement snapshot is embedded in session metadata so the webhook
// handler never re-trusts client data.
func (s *checkoutServiceImpl) CreateSession(ctx context.Context, userID *string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	tracks, err := s.validateItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	sellerIDs := distinctSellerIDs(tracks)
	sellers, err := s.validateSellers(ctx, sellerIDs)
	if err != nil {
		return nil, err
	}

	guestCartID := req.GuestCartID
	if userID == nil && guestCartID == "" {
		// Guest checkout needs an opaque key the access grants can hang off.
		guestCartID = uuid.NewString()
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, len(req.Items))
	snapshots := make([]model.ItemSnapshot, len(req.Items))
	var amountTotal, platformFeeTotal int64

	for i, item := range req.Items {
		track := tracks[item.TrackID]
		seller := sellers[track.SellerID]

		fee := PlatformFee(track.Price, s.commissionPercent)
		snapshots[i] = model.ItemSnapshot{
			TrackID:         track.ID,
			SellerID:        seller.ID,
			SellerAccountID: seller.StripeAccountID,
			Price:           track.Price,
			PlatformFee:     fee,
			SellerEarnings:  SellerEarnings(track.Price, fee),
		}
		amountTotal += track.Price
		platformFeeTotal += fee

		lineItems[i] = &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(track.Currency)),
				UnitAmount: stripe.Int64(track.Price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(track.Title),
					Metadata: map[string]string{
						"track_id": track.ID,
					},
				},
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(s.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.baseURL + "/checkout/cancel"),
		ExpiresAt:  stripe.Int64(time.Now().Add(sessionExpiry).Unix()),
	}

	for i, snap := range snapshots {
		encoded, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("encode item snapshot: %w", err)
		}
		params.AddMetadata(model.ItemKey(i), string(encoded))
	}
	params.AddMetadata(model.MetaItemCount, strconv.Itoa(len(snapshots)))
	params.AddMetadata(model.MetaAmountTotal, strconv.FormatInt(amountTotal, 10))
	params.AddMetadata(model.MetaPlatformFeeTotal, strconv.FormatInt(platformFeeTotal, 10))
	if userID != nil {
		params.AddMetadata(model.MetaUserID, *userID)
	} else {
		params.AddMetadata(model.MetaUserID, "")
	}
	params.AddMetadata(model.MetaGuestCartID, guestCartID)

	// Single-seller carts settle directly to the seller with the platform
	// fee withheld by the processor. Multi-seller carts defer transfers to
	// an external per-seller settlement process; the earnings ledger is
	// written either way.
	settlement := model.SettlementDeferred
	if len(sellerIDs) == 1 {
		settlement = model.SettlementDirect
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(platformFeeTotal),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(sellers[sellerIDs[0]].StripeAccountID),
			},
		}
	}
	params.AddMetadata(model.MetaSettlement, settlement)

	session, err := s.stripeClient.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &dto.CheckoutResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		GuestCartID: guestCartID,
	}, nil
}

// validateItems checks every submitted line item against the track
// records. Submitted prices and sellers must match exactly; this closes
// the price-tampering vector where a client submits a lower price than
// the real listing.
func (s *checkoutServiceImpl) validateItems(ctx context.Context, items []*dto.CartItem) (map[string]*model.Track, error) {
	trackIDs := make([]string, len(items))
	for i, item := range items {
		trackIDs[i] = item.TrackID
	}

	tracks, err := s.trackRepo.FindMany(ctx, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}

	byID := make(map[string]*model.Track, len(tracks))
	for _, track := range tracks {
		byID[track.ID] = track
	}

	currency := ""
	for _, item := range items {
		track, ok := byID[item.TrackID]
		if !ok {
			return nil, newValidationError("track %s not found", item.TrackID)
		}
		if !track.Published {
			return nil, newValidationError("track %s is not available for purchase", item.TrackID)
		}
		if track.Price != item.Price {
			return nil, newValidationError("price mismatch for track %s: submitted %d, listed %d", item.TrackID, item.Price, track.Price)
		}
		if track.SellerID != item.SellerID {
			return nil, newValidationError("seller mismatch for track %s", item.TrackID)
		}
		if currency == "" {
			currency = track.Currency
		} else if track.Currency != currency {
			return nil, newValidationError("cart mixes currencies %s and %s", currency, track.Currency)
		}
	}

	return byID, nil
}

// validateSellers rejects the whole cart if any seller in it is not
// payable. Partial fulfillment of a multi-seller cart is not supported.
func (s *checkoutServiceImpl) validateSellers(ctx context.Context, sellerIDs []string) (map[string]*model.Seller, error) {
	sellers, err := s.sellerRepo.FindMany(ctx, sellerIDs)
	if err != nil {
		return nil, fmt.Errorf("load sellers: %w", err)
	}

	byID := make(map[string]*model.Seller, len(sellers))
	for _, seller := range sellers {
		byID[seller.ID] = seller
	}

	for _, id := range sellerIDs {
		seller, ok := byID[id]
		if !ok {
			return nil, newValidationError("seller %s not found", id)
		}
		if seller.StripeAccountID == "" {
			return nil, newValidationError("seller %s has no payout account", id)
		}
		if !seller.ChargesEnabled {
			return nil, newValidationError("seller %s has charges disabled", id)
		}
	}

	return byID, nil
}

func distinctSellerIDs(tracks map[string]*model.Track) []string {
	seen := make(map[string]struct{}, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		if _, ok := seen[track.SellerID]; ok {
			continue
		}
		seen[track.SellerID] = struct{}{}
		ids = append(ids, track.SellerID)
	}
	return ids
}
