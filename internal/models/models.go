package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DealState is the lifecycle state of a deal. A deal starts awaiting
// confirmation and ends in exactly one of the three terminal states.
type DealState int

const (
	DealAwaitingConfirmation DealState = iota
	DealCanceled
	DealConfirmed
	DealResolved // reachable only through an adjudication verdict
)

func (s DealState) String() string {
	switch s {
	case DealAwaitingConfirmation:
		return "awaiting_confirmation"
	case DealCanceled:
		return "canceled"
	case DealConfirmed:
		return "confirmed"
	case DealResolved:
		return "resolved"
	}
	return "unknown"
}

// AdjudicationState is the progress state of a dispute.
type AdjudicationState int

const (
	AdjudicationApplied AdjudicationState = iota
	AdjudicationResponded
	AdjudicationAdjudicated
)

func (s AdjudicationState) String() string {
	switch s {
	case AdjudicationApplied:
		return "applied"
	case AdjudicationResponded:
		return "responded"
	case AdjudicationAdjudicated:
		return "adjudicated"
	}
	return "unknown"
}

// Account is an authenticated login mapped to a trading address.
type Account struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Address      string    `json:"address"`
	Role         string    `json:"role"` // "trader" or "admin"
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the identity record gating all trading operations.
// One profile per trading address.
type Profile struct {
	Address   string    `json:"address"`
	Hash      string    `json:"hash"` // opaque document pointer, e.g. an IPFS hash
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Asset is a whitelisted underlying asset code mapped to a token handle.
type Asset struct {
	Code    string    `json:"code"`
	Handle  string    `json:"handle"`
	AddedAt time.Time `json:"added_at"`
}

// Order is a maker's standing sell order. One live order per maker.
// Invariant: Remaining + Reserved never exceeds the total amount escrowed
// for this order; Reserved equals the sum of amounts of all deals against
// the order that are still awaiting confirmation.
type Order struct {
	ID           int64           `json:"id"`
	Maker        string          `json:"maker"`
	AssetCode    string          `json:"asset_code"`
	CurrencyCode string          `json:"currency_code"`
	Price        decimal.Decimal `json:"price"`
	Remaining    decimal.Decimal `json:"remaining"`
	Reserved     decimal.Decimal `json:"reserved"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Deal is a partial fill of an order by a taker.
type Deal struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	AssetCode    string          `json:"asset_code"`
	CurrencyCode string          `json:"currency_code"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
	Maker        string          `json:"maker"`
	Taker        string          `json:"taker"`
	State        DealState       `json:"state"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	ConfirmedAt  time.Time       `json:"confirmed_at,omitempty"`
}

// DealCollateral tracks the taker collateral backing a deal. Present even
// for no-collateral deals (zero amount) so redemption checks stay uniform.
type DealCollateral struct {
	DealID    int64           `json:"deal_id"`
	AssetCode string          `json:"asset_code"` // empty when no collateral was required
	Amount    decimal.Decimal `json:"amount"`
	Locked    decimal.Decimal `json:"locked"`
}

// Adjudication is the dispute record for a deal. At most one per deal.
type Adjudication struct {
	ID         int64             `json:"id"`
	DealID     int64             `json:"deal_id"`
	Plaintiff  string            `json:"plaintiff"`
	Defendant  string            `json:"defendant"`
	Arbitrator string            `json:"arbitrator"`
	Winner     string            `json:"winner,omitempty"`
	Evidence   string            `json:"evidence"`
	Response   string            `json:"response,omitempty"`
	Verdict    string            `json:"verdict,omitempty"`
	State      AdjudicationState `json:"state"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ReputationEntry is the per-address reputation record. Created implicitly
// on first verification or violation, never deleted.
type ReputationEntry struct {
	Address          string `json:"address"`
	Verified         bool   `json:"verified"`
	NoCollateralUsed int    `json:"no_collateral_used"`
	Violations       int    `json:"violations"`
	Blacklisted      bool   `json:"blacklisted"`
}
