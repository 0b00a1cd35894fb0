package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"stillwave-marketplace/internal/model"
	"stillwave-marketplace/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Signatures older than this are rejected as replays.
const signatureTolerance = 5 * time.Minute

// ErrInvalidSignature marks a delivery that failed cryptographic
// verification. Nothing is written to the ledger for these.
var ErrInvalidSignature = errors.New("invalid webhook signature")

type WebhookService interface {
	HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error
}

type webhookServiceImpl struct {
	db            *gorm.DB
	webhookSecret string
	eventRepo     repository.WebhookEventRepository
	purchaseRepo  repository.PurchaseRepository
	accessRepo    repository.AccessRepository
	earningsRepo  repository.EarningsRepository
	sellerRepo    repository.SellerRepository
}

func NewWebhookService(
	db *gorm.DB,
	webhookSecret string,
	eventRepo repository.WebhookEventRepository,
	purchaseRepo repository.PurchaseRepository,
	accessRepo repository.AccessRepository,
	earningsRepo repository.EarningsRepository,
	sellerRepo repository.SellerRepository,
) WebhookService {
	return &webhookServiceImpl{
		db:            db,
		webhookSecret: webhookSecret,
		eventRepo:     eventRepo,
		purchaseRepo:  purchaseRepo,
		accessRepo:    accessRepo,
		earningsRepo:  earningsRepo,
		sellerRepo:    sellerRepo,
	}
}

// HandleDelivery runs the full pipeline for one inbound delivery:
// verify signature -> duplicate check -> record "processing" -> dispatch
// by type -> record terminal status. Duplicates of an already-processed
// event return nil without side effects, so the processor's retries stay
// cheap. A handler failure is recorded on the ledger row and returned, so
// the HTTP layer answers non-2xx and the processor redelivers.
func (s *webhookServiceImpl) HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                signatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Printf("rejected webhook delivery with bad signature: %v", err)
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	duplicate, err := s.eventRepo.BeginProcessing(ctx, &model.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   datatypes.JSON(payload),
	})
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if duplicate {
		log.Printf("webhook event %s already processed, skipping", event.ID)
		return nil
	}

	if err := s.dispatch(ctx, &event); err != nil {
		if markErr := s.eventRepo.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			log.Printf("mark webhook event %s failed: %v", event.ID, markErr)
		}
		return fmt.Errorf("process %s event %s: %w", event.Type, event.ID, err)
	}

	return s.eventRepo.MarkProcessed(ctx, event.ID)
}

// dispatch routes a verified, claimed event to its handler. Panics are
// contained here so the ledger row always reaches a terminal status.
func (s *webhookServiceImpl) dispatch(ctx context.Context, event *stripe.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case stripe.EventTypeChargeRefunded:
		return s.handleChargeRefunded(ctx, event)
	case stripe.EventTypeAccountUpdated:
		return s.handleAccountUpdated(ctx, event)
	default:
		// Unrecognized types are accepted and ignored.
		log.Printf("ignoring webhook event type %s", event.Type)
		return nil
	}
}

// handleCheckoutCompleted materializes the purchase from the session's
// own metadata. Client-supplied data is never consulted here; the
// snapshot was fixed at session-creation time.
func (s *webhookServiceImpl) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}

	exists, err := s.purchaseRepo.ExistsBySessionID(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("check existing purchase: %w", err)
	}
	if exists {
		// Redelivered after a completed run; the purchase-level check is
		// the backstop under webhook-level idempotency.
		log.Printf("purchase for session %s already exists, skipping fulfillment", session.ID)
		return nil
	}

	items, err := model.DecodeSnapshots(session.Metadata)
	if err != nil {
		return fmt.Errorf("reconstruct cart from session metadata: %w", err)
	}

	var userID *string
	if v := session.Metadata[model.MetaUserID]; v != "" && v != "guest" {
		userID = &v
	}
	guestCartID := session.Metadata[model.MetaGuestCartID]

	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	purchaseID := uuid.NewString()
	now := time.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.purchaseRepo.Create(ctx, tx, &model.Purchase{
			ID:                    purchaseID,
			UserID:                userID,
			GuestCartID:           guestCartID,
			StripeSessionID:       session.ID,
			StripePaymentIntentID: paymentIntentID,
			AmountTotal:           session.AmountTotal,
			Currency:              string(session.Currency),
			Status:                model.PurchaseStatusProcessing,
		}); err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}

		purchaseItems := make([]*model.PurchaseItem, len(items))
		for i, item := range items {
			purchaseItems[i] = &model.PurchaseItem{
				PurchaseID:     purchaseID,
				TrackID:        item.TrackID,
				SellerID:       item.SellerID,
				Price:          item.Price,
				PlatformFee:    item.PlatformFee,
				SellerEarnings: item.SellerEarnings,
			}
		}
		if err := s.purchaseRepo.CreateItems(ctx, tx, purchaseItems); err != nil {
			return fmt.Errorf("create purchase items: %w", err)
		}

		for _, item := range items {
			if err := s.accessRepo.Create(ctx, tx, &model.TrackAccess{
				UserID:      userID,
				GuestCartID: guestCartID,
				TrackID:     item.TrackID,
				PurchaseID:  purchaseID,
				AccessType:  "purchase",
				CreatedAt:   now,
			}); err != nil {
				return fmt.Errorf("create access grant: %w", err)
			}

			if err := s.earningsRepo.Create(ctx, tx, &model.EarningsLedgerEntry{
				PurchaseID:    purchaseID,
				SellerID:      item.SellerID,
				TrackID:       item.TrackID,
				GrossAmount:   item.Price,
				PlatformFee:   item.PlatformFee,
				ProcessingFee: ProcessingFee(item.Price),
				NetAmount:     item.SellerEarnings,
				Status:        model.EarningsStatusPending,
			}); err != nil {
				return fmt.Errorf("create earnings ledger entry: %w", err)
			}
		}

		// Items, grants and ledger entries are in place before the status
		// flip, so a reader never sees a succeeded purchase with missing
		// rows.
		return s.purchaseRepo.MarkSucceeded(ctx, tx, purchaseID)
	})

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent delivery won the unique session-id race.
			log.Printf("purchase for session %s created concurrently, skipping", session.ID)
			return nil
		}
		return err
	}

	return nil
}

// handleChargeRefunded updates the purchase by the charge's cumulative
// refunded amount. A cumulative total equal to the original charge is a
// full refund: access is revoked and ledger entries flip to refunded.
// Anything less records the running amount and touches nothing else.
func (s *webhookServiceImpl) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("decode charge: %w", err)
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		return fmt.Errorf("charge %s has no payment intent", charge.ID)
	}

	purchase, err := s.purchaseRepo.FindByPaymentIntentID(ctx, charge.PaymentIntent.ID)
	if err != nil {
		// Possibly delivered ahead of the completion event; fail so the
		// processor redelivers after fulfillment has caught up.
		return fmt.Errorf("find purchase for payment intent %s: %w", charge.PaymentIntent.ID, err)
	}

	if purchase.Status == model.PurchaseStatusRefunded {
		log.Printf("purchase %s already refunded, skipping", purchase.ID)
		return nil
	}

	fullRefund := charge.AmountRefunded >= charge.Amount

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !fullRefund {
			return s.purchaseRepo.RecordPartialRefund(ctx, tx, purchase.ID, charge.AmountRefunded)
		}

		if err := s.purchaseRepo.MarkRefunded(ctx, tx, purchase.ID, charge.AmountRefunded); err != nil {
			return fmt.Errorf("mark purchase refunded: %w", err)
		}
		if err := s.accessRepo.RevokeByPurchaseID(ctx, tx, purchase.ID); err != nil {
			return fmt.Errorf("revoke access grants: %w", err)
		}
		if err := s.earningsRepo.MarkRefundedByPurchaseID(ctx, tx, purchase.ID); err != nil {
			return fmt.Errorf("refund earnings ledger entries: %w", err)
		}
		return nil
	})
}

// handleAccountUpdated keeps seller eligibility in sync with the
// processor's view of the connected account.
func (s *webhookServiceImpl) handleAccountUpdated(ctx context.Context, event *stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}

	seller, err := s.sellerRepo.FindByStripeAccountID(ctx, account.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("account %s does not belong to a seller, ignoring", account.ID)
			return nil
		}
		return fmt.Errorf("find seller for account %s: %w", account.ID, err)
	}

	if seller.ChargesEnabled == account.ChargesEnabled {
		return nil
	}
	return s.sellerRepo.SetChargesEnabled(ctx, seller.ID, account.ChargesEnabled)
}
