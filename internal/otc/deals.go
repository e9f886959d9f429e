package otc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xtrntr/otc/internal/events"
	"github.com/xtrntr/otc/internal/models"
)

// MakeDeal partially fills a maker's order. The taker either qualifies for
// the verified no-collateral tier or posts collateral worth
// amount * price * takerCRatio, converted through the collateral asset's
// rate at this moment. The filled amount moves from the order's remaining
// to its reserved bucket until the maker confirms or the taker cancels.
func (e *Engine) MakeDeal(ctx context.Context, principal, maker string, amount decimal.Decimal, collateralAsset string) (models.Deal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.profiles[principal]; !ok {
		return models.Deal{}, ErrProfileNotFound
	}
	if principal == maker {
		return models.Deal{}, ErrSelfTrade
	}
	if rep, ok := e.reputation[principal]; ok && rep.Blacklisted {
		return models.Deal{}, ErrBlacklisted
	}
	cur, ok := e.orders[maker]
	if !ok {
		return models.Deal{}, ErrOrderNotFound
	}
	if amount.LessThan(e.params.MinTradeAmount) {
		return models.Deal{}, ErrBelowMinTrade
	}
	if amount.GreaterThan(cur.Remaining) {
		return models.Deal{}, ErrInsufficientRemaining
	}

	now := e.now()
	counters := e.counters
	order := *cur
	order.Remaining = order.Remaining.Sub(amount)
	order.Reserved = order.Reserved.Add(amount)
	order.UpdatedAt = now

	deal := models.Deal{
		ID:           counters.NextDealID,
		OrderID:      order.ID,
		AssetCode:    order.AssetCode,
		CurrencyCode: order.CurrencyCode,
		Price:        order.Price,
		Amount:       amount,
		Maker:        maker,
		Taker:        principal,
		State:        models.DealAwaitingConfirmation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	counters.NextDealID++

	col := models.DealCollateral{DealID: deal.ID, Amount: decimal.Zero, Locked: decimal.Zero}
	cs := newChangeset()
	var transfers []transfer

	rep := e.reputation[principal]
	if e.qualifiesNoCollateral(rep, amount) {
		updated := *rep
		updated.NoCollateralUsed++
		cs.Reputation = append(cs.Reputation, updated)
	} else {
		if _, ok := e.assets[collateralAsset]; !ok {
			return models.Deal{}, ErrAssetNotFound
		}
		rate, err := e.rates.Rate(collateralAsset, order.CurrencyCode)
		if err != nil || !rate.IsPositive() {
			return models.Deal{}, ErrRateUnavailable
		}
		required := amount.Mul(order.Price).Mul(e.params.TakerCRatio).Div(rate)
		col.AssetCode = collateralAsset
		col.Amount = required
		col.Locked = required
		transfers = append(transfers, transfer{asset: collateralAsset, from: principal, to: e.escrow, amount: required})
	}

	cs.Orders = append(cs.Orders, order)
	cs.Deals = append(cs.Deals, deal)
	cs.Collateral = append(cs.Collateral, col)
	cs.Counters = &counters
	if err := e.apply(ctx, cs, transfers); err != nil {
		return models.Deal{}, err
	}

	*cur = order
	e.deals[deal.ID] = &deal
	e.collateral[deal.ID] = &col
	e.counters = counters
	if len(cs.Reputation) > 0 {
		*rep = cs.Reputation[0]
	}
	e.publish("MakeDeal", orderUpdated(order), dealUpdated(deal))
	return deal, nil
}

func (e *Engine) qualifiesNoCollateral(rep *models.ReputationEntry, amount decimal.Decimal) bool {
	return rep != nil && rep.Verified &&
		rep.NoCollateralUsed < e.params.MaxNoCollateralTradeCount &&
		amount.LessThanOrEqual(e.params.MaxTradeAmountForVerified)
}

// CancelDeal lets the taker back out of an unconfirmed deal. The reserved
// amount returns to the order and any locked collateral is released in full.
func (e *Engine) CancelDeal(ctx context.Context, principal string, dealID int64) (models.Deal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.deals[dealID]
	if !ok {
		return models.Deal{}, ErrDealNotFound
	}
	if principal != cur.Taker {
		return models.Deal{}, ErrNotDealTaker
	}
	if cur.State != models.DealAwaitingConfirmation {
		return models.Deal{}, ErrDealNotOpen
	}

	now := e.now()
	order := *e.orders[cur.Maker]
	order.Reserved = order.Reserved.Sub(cur.Amount)
	order.Remaining = order.Remaining.Add(cur.Amount)
	order.UpdatedAt = now

	deal := *cur
	deal.State = models.DealCanceled
	deal.UpdatedAt = now

	col := *e.collateral[dealID]
	var transfers []transfer
	if col.Locked.IsPositive() {
		transfers = append(transfers, transfer{asset: col.AssetCode, from: e.escrow, to: deal.Taker, amount: col.Locked})
		col.Locked = decimal.Zero
	}

	cs := newChangeset()
	cs.Orders = append(cs.Orders, order)
	cs.Deals = append(cs.Deals, deal)
	cs.Collateral = append(cs.Collateral, col)
	if err := e.apply(ctx, cs, transfers); err != nil {
		return models.Deal{}, err
	}

	*e.orders[cur.Maker] = order
	*cur = deal
	*e.collateral[dealID] = col
	e.publish("CancelDeal", orderUpdated(order), dealUpdated(deal))
	return deal, nil
}

// ConfirmDeal settles a deal in the maker's favor of completion: the taker
// receives the traded amount net of fee, the fee goes to the treasury, and
// the reserved portion leaves the order for good. Collateral stays locked
// until the frozen period elapses.
func (e *Engine) ConfirmDeal(ctx context.Context, principal string, dealID int64) (models.Deal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.deals[dealID]
	if !ok {
		return models.Deal{}, ErrDealNotFound
	}
	if principal != cur.Maker {
		return models.Deal{}, ErrNotDealMaker
	}
	if cur.State != models.DealAwaitingConfirmation {
		return models.Deal{}, ErrDealNotOpen
	}

	now := e.now()
	fee := cur.Amount.Mul(e.params.FeeRatio)
	payout := cur.Amount.Sub(fee)

	order := *e.orders[cur.Maker]
	order.Reserved = order.Reserved.Sub(cur.Amount)
	order.UpdatedAt = now

	deal := *cur
	deal.Fee = fee
	deal.State = models.DealConfirmed
	deal.UpdatedAt = now
	deal.ConfirmedAt = now

	transfers := []transfer{
		{asset: deal.AssetCode, from: e.escrow, to: deal.Taker, amount: payout},
		{asset: deal.AssetCode, from: e.escrow, to: e.treasury(), amount: fee},
	}

	cs := newChangeset()
	cs.Orders = append(cs.Orders, order)
	cs.Deals = append(cs.Deals, deal)
	if err := e.apply(ctx, cs, transfers); err != nil {
		return models.Deal{}, err
	}

	*e.orders[cur.Maker] = order
	*cur = deal
	e.publish("ConfirmDeal", orderUpdated(order), dealUpdated(deal))
	return deal, nil
}

// RedeemCollateral releases a taker's collateral after the frozen period
// that follows confirmation. A second redemption fails.
func (e *Engine) RedeemCollateral(ctx context.Context, principal string, dealID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.deals[dealID]
	if !ok {
		return ErrDealNotFound
	}
	if principal != cur.Taker {
		return ErrNotDealTaker
	}
	if cur.State != models.DealConfirmed {
		return ErrDealNotConfirmed
	}
	col := *e.collateral[dealID]
	if !col.Locked.IsPositive() {
		return ErrNoCollateral
	}
	if e.now().Before(cur.ConfirmedAt.Add(e.params.DealFrozenPeriod)) {
		return ErrFrozenPeriodNotElapsed
	}

	out := []transfer{{asset: col.AssetCode, from: e.escrow, to: cur.Taker, amount: col.Locked}}
	col.Locked = decimal.Zero

	cs := newChangeset()
	cs.Collateral = append(cs.Collateral, col)
	if err := e.apply(ctx, cs, out); err != nil {
		return err
	}

	*e.collateral[dealID] = col
	e.publish("RedeemCollateral", event("RedeemCollateral", fields{
		"deal_id": dealID, "taker": cur.Taker, "amount": col.Amount,
	}))
	return nil
}

// LeftFrozenTime reports how long until a confirmed deal's collateral can
// be redeemed. Zero once the frozen period has elapsed.
func (e *Engine) LeftFrozenTime(dealID int64) (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.deals[dealID]
	if !ok {
		return 0, ErrDealNotFound
	}
	if cur.State != models.DealConfirmed {
		return 0, ErrDealNotConfirmed
	}
	left := cur.ConfirmedAt.Add(e.params.DealFrozenPeriod).Sub(e.now())
	if left < 0 {
		left = 0
	}
	return left, nil
}

// GetDeal returns a deal by id.
func (e *Engine) GetDeal(dealID int64) (models.Deal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.deals[dealID]
	if !ok {
		return models.Deal{}, ErrDealNotFound
	}
	return *d, nil
}

// GetCollateral returns the collateral record for a deal.
func (e *Engine) GetCollateral(dealID int64) (models.DealCollateral, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.collateral[dealID]
	if !ok {
		return models.DealCollateral{}, ErrDealNotFound
	}
	return *c, nil
}

// HasDeal reports whether a deal id exists.
func (e *Engine) HasDeal(dealID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.deals[dealID]
	return ok
}

// DealCount is the total number of deals ever created.
func (e *Engine) DealCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters.NextDealID
}

func (e *Engine) treasury() string {
	if e.params.Treasury != "" {
		return e.params.Treasury
	}
	return e.owner
}

func dealUpdated(d models.Deal) events.Event {
	return event("UpdateDeal", fields{
		"deal_id": d.ID, "order_id": d.OrderID,
		"maker": d.Maker, "taker": d.Taker,
		"amount": d.Amount, "fee": d.Fee, "state": d.State.String(),
	})
}
