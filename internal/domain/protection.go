package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProtectionStatus string

const (
	ProtectionStatusActive    ProtectionStatus = "ACTIVE"
	ProtectionStatusExpired   ProtectionStatus = "EXPIRED"
	ProtectionStatusExercised ProtectionStatus = "EXERCISED"
)

// Protection is a purchased, persisted put. It is created atomically with
// quote consumption and mutated only by the settlement job; the status never
// reverts once settled.
type Protection struct {
	ID            string           `json:"id"`
	HoldingID     string           `json:"holding_id"`
	UserID        string           `json:"user_id"`
	AssetID       string           `json:"asset_id"`
	StrikeLocal   decimal.Decimal  `json:"strike_local"`
	StrikeRef     decimal.Decimal  `json:"strike_ref"`
	NotionalLocal decimal.Decimal  `json:"notional_local"`
	NotionalRef   decimal.Decimal  `json:"notional_ref"`
	PremiumLocal  decimal.Decimal  `json:"premium_local"`
	PremiumRef    decimal.Decimal  `json:"premium_ref"`
	DurationDays  int              `json:"duration_days"`
	PurchasedAt   time.Time        `json:"purchased_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	Status        ProtectionStatus `json:"status"`

	SettledPriceRef *decimal.Decimal `json:"settled_price_ref,omitempty"`
	PayoutLocal     *decimal.Decimal `json:"payout_local,omitempty"`
	PayoutRef       *decimal.Decimal `json:"payout_ref,omitempty"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
}

// LedgerEntry is an append-only accounting record written by the purchase
// flow and the settlement job.
type LedgerEntry struct {
	ID           string
	Kind         string
	AmountLocal  decimal.Decimal
	AmountRef    decimal.Decimal
	ProtectionID string
	HoldingID    string
	UserID       string
	Message      string
	CreatedAt    time.Time
}

const (
	LedgerKindPremiumDebit     = "protection_premium"
	LedgerKindStatusChange     = "protection_settlement"
	LedgerKindSettlementCredit = "protection_payout"
)
