package model

import (
	"time"

	"gorm.io/datatypes"
)

// Purchase status values. Transitions only move forward:
// processing -> succeeded -> refunded.
const (
	PurchaseStatusProcessing = "processing"
	PurchaseStatusSucceeded  = "succeeded"
	PurchaseStatusRefunded   = "refunded"
)

// Webhook event ledger status values.
const (
	EventStatusProcessing = "processing"
	EventStatusProcessed  = "processed"
	EventStatusFailed     = "failed"
)

// Earnings ledger status values.
const (
	EarningsStatusPending  = "pending"
	EarningsStatusRefunded = "refunded"
)

type Track struct {
	ID         string `gorm:"primaryKey;size:64;not null"`
	Title      string `gorm:"size:255;not null"`
	ArtistName string `gorm:"size:255"`
	SellerID   string `gorm:"size:64;index;not null"`
	Price      int64  `gorm:"not null"` // minor units
	Currency   string `gorm:"size:8;not null"`
	Published  bool   `gorm:"index;not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Seller struct {
	ID              string `gorm:"primaryKey;size:64;not null"`
	DisplayName     string `gorm:"size:255;not null"`
	StripeAccountID string `gorm:"size:64;index"` // empty until onboarded
	ChargesEnabled  bool   `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Purchase struct {
	ID                    string  `gorm:"primaryKey;size:64;not null"`
	UserID                *string `gorm:"size:64;index"` // nil for guest checkout
	GuestCartID           string  `gorm:"size:64;index"`
	StripeSessionID       string  `gorm:"size:128;uniqueIndex;not null"`
	StripePaymentIntentID string  `gorm:"size:128;index"`
	AmountTotal           int64   `gorm:"not null"`
	Currency              string  `gorm:"size:8;not null"`
	Status                string  `gorm:"size:16;index;not null"`
	RefundedAmount        int64   `gorm:"not null;default:0"`
	CompletedAt           *time.Time
	RefundedAt            *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type PurchaseItem struct {
	ID             uint   `gorm:"primaryKey"`
	PurchaseID     string `gorm:"size:64;index;not null"`
	TrackID        string `gorm:"size:64;index;not null"`
	SellerID       string `gorm:"size:64;index;not null"`
	Price          int64  `gorm:"not null"`
	PlatformFee    int64  `gorm:"not null"`
	SellerEarnings int64  `gorm:"not null"`
	CreatedAt      time.Time
}

// TrackAccess is the durable grant: its presence with a null RevokedAt is
// the authoritative answer to "can this identity play this track".
type TrackAccess struct {
	ID          uint    `gorm:"primaryKey"`
	UserID      *string `gorm:"size:64;index"`
	GuestCartID string  `gorm:"size:64;index"`
	TrackID     string  `gorm:"size:64;index;not null"`
	PurchaseID  string  `gorm:"size:64;index;not null"`
	AccessType  string  `gorm:"size:16;not null"` // "purchase"
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// EarningsLedgerEntry is the seller-facing accounting record feeding
// payouts, one row per (purchase, seller, track).
type EarningsLedgerEntry struct {
	ID            uint   `gorm:"primaryKey"`
	PurchaseID    string `gorm:"size:64;index;not null"`
	SellerID      string `gorm:"size:64;index;not null"`
	TrackID       string `gorm:"size:64;not null"`
	GrossAmount   int64  `gorm:"not null"`
	PlatformFee   int64  `gorm:"not null"`
	ProcessingFee int64  `gorm:"not null"` // processor fee estimate
	NetAmount     int64  `gorm:"not null"`
	Status        string `gorm:"size:16;index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WebhookEvent is the idempotency ledger. A row is inserted in
// "processing" state before the handler runs and updated to a terminal
// status afterward; rows are never deleted.
type WebhookEvent struct {
	EventID      string         `gorm:"primaryKey;size:128;not null"`
	EventType    string         `gorm:"size:64;index"`
	Payload      datatypes.JSON `gorm:"type:json"`
	Status       string         `gorm:"size:16;index;not null"`
	ErrorMessage string         `gorm:"size:1024"`
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
