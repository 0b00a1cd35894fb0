package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Metadata keys written onto the checkout session at creation time and
// read back during webhook fulfillment. The session metadata is the only
// source of truth for the cart once the session exists.
const (
	MetaItemCount        = "item_count"
	MetaAmountTotal      = "amount_total"
	MetaPlatformFeeTotal = "platform_fee_total"
	MetaUserID           = "user_id"
	MetaGuestCartID      = "guest_cart_id"
	MetaSettlement       = "settlement"
)

// Settlement modes embedded in session metadata.
const (
	SettlementDirect   = "direct"   // single seller, funds routed by the processor
	SettlementDeferred = "deferred" // multi seller, transfers executed externally
)

// ItemSnapshot is the per-item settlement record serialized into a
// session metadata slot (item_0, item_1, ...). Keys are kept short; a
// metadata value is limited to 500 characters.
type ItemSnapshot struct {
	TrackID         string `json:"track_id"`
	SellerID        string `json:"seller_id"`
	SellerAccountID string `json:"seller_account_id"`
	Price           int64  `json:"price"`
	PlatformFee     int64  `json:"platform_fee"`
	SellerEarnings  int64  `json:"seller_earnings"`
}

// ItemKey returns the metadata key for the snapshot at index i.
func ItemKey(i int) string {
	return "item_" + strconv.Itoa(i)
}

// DecodeSnapshots reconstructs the cart from session metadata. It fails
// if item_count is missing or any indexed slot is absent or malformed,
// since a partial cart must never be fulfilled.
func DecodeSnapshots(metadata map[string]string) ([]ItemSnapshot, error) {
	raw, ok := metadata[MetaItemCount]
	if !ok {
		return nil, fmt.Errorf("metadata missing %s", MetaItemCount)
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return nil, fmt.Errorf("invalid %s %q", MetaItemCount, raw)
	}

	items := make([]ItemSnapshot, count)
	for i := 0; i < count; i++ {
		slot, ok := metadata[ItemKey(i)]
		if !ok {
			return nil, fmt.Errorf("metadata missing %s", ItemKey(i))
		}
		if err := json.Unmarshal([]byte(slot), &items[i]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", ItemKey(i), err)
		}
	}

	return items, nil
}
