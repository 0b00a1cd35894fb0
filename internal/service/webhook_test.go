package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"stillwave-marketplace/internal/model"
	"stillwave-marketplace/internal/repository"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

type webhookFixture struct {
	db       *gorm.DB
	svc      WebhookService
	events   repository.WebhookEventRepository
	access   repository.AccessRepository
	earnings repository.EarningsRepository
	sellers  repository.SellerRepository
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := newTestDB(t)
	events := repository.NewWebhookEventRepository(db)
	access := repository.NewAccessRepository(db)
	earnings := repository.NewEarningsRepository(db)
	sellers := repository.NewSellerRepository(db)

	return &webhookFixture{
		db:       db,
		events:   events,
		access:   access,
		earnings: earnings,
		sellers:  sellers,
		svc: NewWebhookService(
			db,
			testWebhookSecret,
			events,
			repository.NewPurchaseRepository(db),
			access,
			earnings,
			sellers,
		),
	}
}

func signHeader(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}

func (f *webhookFixture) deliver(t *testing.T, payload []byte) error {
	t.Helper()
	return f.svc.HandleDelivery(context.Background(), payload, signHeader(payload, testWebhookSecret, time.Now()))
}

func eventPayload(t *testing.T, eventID, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":      eventID,
		"object":  "event",
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func sessionObject(t *testing.T, sessionID, paymentIntentID, userID, guestCartID string, items []model.ItemSnapshot) map[string]interface{} {
	t.Helper()

	metadata := map[string]string{
		model.MetaItemCount:   strconv.Itoa(len(items)),
		model.MetaUserID:      userID,
		model.MetaGuestCartID: guestCartID,
		model.MetaSettlement:  model.SettlementDirect,
	}
	var amountTotal, feeTotal int64
	for i, item := range items {
		encoded, err := json.Marshal(item)
		require.NoError(t, err)
		metadata[model.ItemKey(i)] = string(encoded)
		amountTotal += item.Price
		feeTotal += item.PlatformFee
	}
	metadata[model.MetaAmountTotal] = strconv.FormatInt(amountTotal, 10)
	metadata[model.MetaPlatformFeeTotal] = strconv.FormatInt(feeTotal, 10)

	return map[string]interface{}{
		"id":             sessionID,
		"object":         "checkout.session",
		"amount_total":   amountTotal,
		"currency":       "usd",
		"payment_intent": paymentIntentID,
		"metadata":       metadata,
	}
}

func chargeObject(chargeID, paymentIntentID string, amount, amountRefunded int64) map[string]interface{} {
	return map[string]interface{}{
		"id":              chargeID,
		"object":          "charge",
		"amount":          amount,
		"amount_refunded": amountRefunded,
		"payment_intent":  paymentIntentID,
	}
}

func oneItemCart() []model.ItemSnapshot {
	return []model.ItemSnapshot{{
		TrackID:         "trk_calm",
		SellerID:        "sel_1",
		SellerAccountID: "acct_1",
		Price:           299,
		PlatformFee:     45,
		SellerEarnings:  254,
	}}
}

func (f *webhookFixture) purchaseBySession(t *testing.T, sessionID string) *model.Purchase {
	t.Helper()
	var purchase model.Purchase
	require.NoError(t, f.db.Where("stripe_session_id = ?", sessionID).First(&purchase).Error)
	return &purchase
}

func countRows(t *testing.T, db *gorm.DB, value interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(value).Count(&n).Error)
	return n
}

func TestHandleDeliveryFulfillsGuestPurchase(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))
	require.NoError(t, f.deliver(t, payload))

	purchase := f.purchaseBySession(t, "cs_1")
	require.Equal(t, model.PurchaseStatusSucceeded, purchase.Status)
	require.Nil(t, purchase.UserID)
	require.Equal(t, "guest_cart_1", purchase.GuestCartID)
	require.Equal(t, "pi_1", purchase.StripePaymentIntentID)
	require.Equal(t, int64(299), purchase.AmountTotal)
	require.Equal(t, "usd", purchase.Currency)
	require.NotNil(t, purchase.CompletedAt)

	require.EqualValues(t, 1, countRows(t, f.db, &model.PurchaseItem{}))

	grants, err := f.access.ListForGuestCart(context.Background(), "guest_cart_1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "trk_calm", grants[0].TrackID)
	require.Equal(t, purchase.ID, grants[0].PurchaseID)

	entries, err := f.earnings.ListByPurchaseID(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.EarningsStatusPending, entries[0].Status)
	require.Equal(t, "sel_1", entries[0].SellerID)
	require.Equal(t, int64(299), entries[0].GrossAmount)
	require.Equal(t, int64(45), entries[0].PlatformFee)
	require.Equal(t, int64(39), entries[0].ProcessingFee)
	require.Equal(t, int64(254), entries[0].NetAmount)

	ledger, err := f.events.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Equal(t, model.EventStatusProcessed, ledger.Status)
	require.NotNil(t, ledger.ProcessedAt)
}

func TestHandleDeliveryFulfillsAuthenticatedPurchase(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "user_9", "", oneItemCart()))
	require.NoError(t, f.deliver(t, payload))

	purchase := f.purchaseBySession(t, "cs_1")
	require.NotNil(t, purchase.UserID)
	require.Equal(t, "user_9", *purchase.UserID)

	grants, err := f.access.ListForUser(context.Background(), "user_9")
	require.NoError(t, err)
	require.Len(t, grants, 1)
}

func TestHandleDeliveryRedeliveryIsNoOp(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))
	require.NoError(t, f.deliver(t, payload))
	require.NoError(t, f.deliver(t, payload))

	require.EqualValues(t, 1, countRows(t, f.db, &model.Purchase{}))
	require.EqualValues(t, 1, countRows(t, f.db, &model.TrackAccess{}))
	require.EqualValues(t, 1, countRows(t, f.db, &model.EarningsLedgerEntry{}))
	require.EqualValues(t, 1, countRows(t, f.db, &model.WebhookEvent{}))
}

func TestHandleDeliveryDistinctEventSameSessionSkipsFulfillment(t *testing.T) {
	f := newWebhookFixture(t)

	object := sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart())
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "checkout.session.completed", object)))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_2", "checkout.session.completed", object)))

	require.EqualValues(t, 1, countRows(t, f.db, &model.Purchase{}))

	ledger, err := f.events.Get(context.Background(), "evt_2")
	require.NoError(t, err)
	require.Equal(t, model.EventStatusProcessed, ledger.Status)
}

func TestHandleDeliveryRejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))

	err := f.svc.HandleDelivery(context.Background(), payload, signHeader(payload, "whsec_wrong", time.Now()))
	require.ErrorIs(t, err, ErrInvalidSignature)

	// Unverified deliveries must leave no trace in the ledger.
	require.EqualValues(t, 0, countRows(t, f.db, &model.WebhookEvent{}))
	require.EqualValues(t, 0, countRows(t, f.db, &model.Purchase{}))
}

func TestHandleDeliveryRejectsStaleSignature(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))

	stale := time.Now().Add(-signatureTolerance - time.Minute)
	err := f.svc.HandleDelivery(context.Background(), payload, signHeader(payload, testWebhookSecret, stale))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHandleDeliveryAcceptsUnknownEventType(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "invoice.created", map[string]interface{}{
		"id":     "in_1",
		"object": "invoice",
	})
	require.NoError(t, f.deliver(t, payload))

	ledger, err := f.events.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Equal(t, model.EventStatusProcessed, ledger.Status)
	require.EqualValues(t, 0, countRows(t, f.db, &model.Purchase{}))
}

func TestHandleDeliveryBrokenMetadataMarksFailed(t *testing.T) {
	f := newWebhookFixture(t)

	payload := eventPayload(t, "evt_1", "checkout.session.completed", map[string]interface{}{
		"id":             "cs_1",
		"object":         "checkout.session",
		"amount_total":   299,
		"currency":       "usd",
		"payment_intent": "pi_1",
		"metadata":       map[string]string{},
	})
	require.Error(t, f.deliver(t, payload))

	ledger, err := f.events.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Equal(t, model.EventStatusFailed, ledger.Status)
	require.NotEmpty(t, ledger.ErrorMessage)
	require.EqualValues(t, 0, countRows(t, f.db, &model.Purchase{}))
}

func TestHandleDeliveryFullRefundRevokesEverything(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_2", "charge.refunded",
		chargeObject("ch_1", "pi_1", 299, 299))))

	purchase := f.purchaseBySession(t, "cs_1")
	require.Equal(t, model.PurchaseStatusRefunded, purchase.Status)
	require.Equal(t, int64(299), purchase.RefundedAmount)
	require.NotNil(t, purchase.RefundedAt)

	grants, err := f.access.ListForGuestCart(context.Background(), "guest_cart_1")
	require.NoError(t, err)
	require.Empty(t, grants, "revoked grants must not satisfy library lookups")

	var revoked int64
	require.NoError(t, f.db.Model(&model.TrackAccess{}).
		Where("revoked_at IS NOT NULL").Count(&revoked).Error)
	require.EqualValues(t, 1, revoked, "grants are revoked in place, never deleted")

	entries, err := f.earnings.ListByPurchaseID(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, model.EarningsStatusRefunded, entries[0].Status)
}

func TestHandleDeliveryPartialRefundKeepsAccess(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_2", "charge.refunded",
		chargeObject("ch_1", "pi_1", 299, 100))))

	purchase := f.purchaseBySession(t, "cs_1")
	require.Equal(t, model.PurchaseStatusSucceeded, purchase.Status)
	require.Equal(t, int64(100), purchase.RefundedAmount)
	require.Nil(t, purchase.RefundedAt)

	grants, err := f.access.ListForGuestCart(context.Background(), "guest_cart_1")
	require.NoError(t, err)
	require.Len(t, grants, 1)

	entries, err := f.earnings.ListByPurchaseID(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Equal(t, model.EarningsStatusPending, entries[0].Status)
}

func TestHandleDeliveryCumulativeRefundsReachFull(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_2", "charge.refunded",
		chargeObject("ch_1", "pi_1", 299, 100))))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_3", "charge.refunded",
		chargeObject("ch_1", "pi_1", 299, 299))))

	purchase := f.purchaseBySession(t, "cs_1")
	require.Equal(t, model.PurchaseStatusRefunded, purchase.Status)
	require.Equal(t, int64(299), purchase.RefundedAmount)
}

func TestHandleDeliveryRefundAfterRefundIsNoOp(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "checkout.session.completed",
		sessionObject(t, "cs_1", "pi_1", "", "guest_cart_1", oneItemCart()))))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_2", "charge.refunded",
		chargeObject("ch_1", "pi_1", 299, 299))))
	require.NoError(t, f.deliver(t, eventPayload(t, "evt_3", "charge.refunded",
		chargeObject("ch_1", "pi_1", 299, 299))))

	purchase := f.purchaseBySession(t, "cs_1")
	require.Equal(t, model.PurchaseStatusRefunded, purchase.Status)
}

func TestHandleDeliveryRefundBeforeFulfillmentFails(t *testing.T) {
	f := newWebhookFixture(t)

	err := f.deliver(t, eventPayload(t, "evt_1", "charge.refunded",
		chargeObject("ch_1", "pi_unknown", 299, 299)))
	require.Error(t, err)

	// Failed rows stay retryable so the out-of-order delivery succeeds
	// once fulfillment has caught up.
	ledger, err := f.events.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Equal(t, model.EventStatusFailed, ledger.Status)
}

func TestHandleDeliveryAccountUpdatedSyncsEligibility(t *testing.T) {
	f := newWebhookFixture(t)
	seedSeller(t, f.db, "sel_1", "acct_1", false)

	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "account.updated", map[string]interface{}{
		"id":              "acct_1",
		"object":          "account",
		"charges_enabled": true,
	})))

	seller, err := f.sellers.Get(context.Background(), "sel_1")
	require.NoError(t, err)
	require.True(t, seller.ChargesEnabled)
}

func TestHandleDeliveryAccountUpdatedUnknownAccountIgnored(t *testing.T) {
	f := newWebhookFixture(t)

	require.NoError(t, f.deliver(t, eventPayload(t, "evt_1", "account.updated", map[string]interface{}{
		"id":              "acct_stranger",
		"object":          "account",
		"charges_enabled": true,
	})))

	ledger, err := f.events.Get(context.Background(), "evt_1")
	require.NoError(t, err)
	require.Equal(t, model.EventStatusProcessed, ledger.Status)
}
