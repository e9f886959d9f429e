package otc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Params are the admin-tunable engine parameters. Ratios are plain
// fractions (0.2 = 20%), periods are wall-clock durations checked as
// preconditions against the engine clock.
type Params struct {
	TakerCRatio decimal.Decimal `json:"taker_c_ratio"`
	MakerCRatio decimal.Decimal `json:"maker_c_ratio"`
	FeeRatio    decimal.Decimal `json:"fee_ratio"`

	MinTradeAmount            decimal.Decimal `json:"min_trade_amount"`
	MaxTradeAmountForVerified decimal.Decimal `json:"max_trade_amount_for_verified"`
	MaxNoCollateralTradeCount int             `json:"max_no_collateral_trade_count"`

	DealFrozenPeriod     time.Duration `json:"deal_frozen_period"`
	DealExpiredPeriod    time.Duration `json:"deal_expired_period"`
	RespondExpiredPeriod time.Duration `json:"respond_expired_period"`

	SelfCompensationRatio decimal.Decimal `json:"self_compensation_ratio"`
	DAOCompensationRatio  decimal.Decimal `json:"dao_compensation_ratio"`
	ViolationThreshold    int             `json:"violation_threshold"`

	Treasury   string `json:"treasury"`
	Arbitrator string `json:"arbitrator"`
}

// DefaultParams mirrors the original deployment configuration.
func DefaultParams() Params {
	return Params{
		TakerCRatio:               decimal.RequireFromString("0.2"),
		MakerCRatio:               decimal.RequireFromString("0.1"),
		FeeRatio:                  decimal.RequireFromString("0.003"),
		MinTradeAmount:            decimal.NewFromInt(1),
		MaxTradeAmountForVerified: decimal.NewFromInt(100),
		MaxNoCollateralTradeCount: 5,
		DealFrozenPeriod:          72 * time.Hour,
		DealExpiredPeriod:         48 * time.Hour,
		RespondExpiredPeriod:      24 * time.Hour,
		SelfCompensationRatio:     decimal.RequireFromString("0.5"),
		DAOCompensationRatio:      decimal.RequireFromString("0.5"),
		ViolationThreshold:        3,
	}
}

func (p Params) validate() error {
	one := decimal.NewFromInt(1)
	switch {
	case p.TakerCRatio.IsNegative(), p.MakerCRatio.IsNegative():
		return ErrInvalidParams
	case p.FeeRatio.IsNegative(), p.FeeRatio.GreaterThan(one):
		return ErrInvalidParams
	case p.MinTradeAmount.IsNegative(), p.MaxTradeAmountForVerified.IsNegative():
		return ErrInvalidParams
	case p.MaxNoCollateralTradeCount < 0, p.ViolationThreshold < 1:
		return ErrInvalidParams
	case p.DealFrozenPeriod < 0, p.DealExpiredPeriod < 0, p.RespondExpiredPeriod < 0:
		return ErrInvalidParams
	case p.SelfCompensationRatio.IsNegative(), p.DAOCompensationRatio.IsNegative():
		return ErrInvalidParams
	case p.SelfCompensationRatio.Add(p.DAOCompensationRatio).GreaterThan(one):
		return ErrInvalidParams
	}
	return nil
}

// SetParams replaces the engine parameters. Owner only.
func (e *Engine) SetParams(ctx context.Context, principal string, p Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if principal != e.owner {
		return ErrNotOwner
	}
	if err := p.validate(); err != nil {
		return err
	}

	cs := newChangeset()
	cs.Params = &p
	if err := e.apply(ctx, cs, nil); err != nil {
		return err
	}
	e.params = p
	e.publish("SetParams", event("UpdateParams", fields{"params": p}))
	return nil
}

// Params returns a copy of the current engine parameters.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}
