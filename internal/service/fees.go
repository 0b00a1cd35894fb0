package service

import "math"

// Processor card fee schedule used for the earnings-ledger estimate:
// a fixed percentage plus a per-transaction charge, both in minor units.
const (
	processingFeePercent = 2.9
	processingFeeFixed   = 30
)

// PlatformFee returns the commission retained by the platform on a gross
// amount, rounded to the nearest minor unit. The same function runs at
// checkout time and would run at webhook time, so both sides always agree;
// in practice the webhook side reads the value back from the session
// metadata snapshot instead of recomputing.
func PlatformFee(gross int64, commissionPercent float64) int64 {
	return int64(math.Round(float64(gross) * commissionPercent / 100))
}

// SellerEarnings is the seller's cut after the platform fee.
func SellerEarnings(gross, platformFee int64) int64 {
	return gross - platformFee
}

// ProcessingFee estimates the payment processor's own transaction fee for
// a gross amount. It is an estimate for seller-facing accounting only.
func ProcessingFee(gross int64) int64 {
	return int64(math.Round(float64(gross)*processingFeePercent/100)) + processingFeeFixed
}
