package otc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xtrntr/otc/internal/events"
	"github.com/xtrntr/otc/internal/models"
)

// OpenOrder posts a standing sell order. The whole posted amount is pulled
// from the maker into escrow up front, so later fills never need to
// re-check maker solvency.
func (e *Engine) OpenOrder(ctx context.Context, principal, assetCode, currencyCode string, price, amount decimal.Decimal) (models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.profiles[principal]; !ok {
		return models.Order{}, ErrProfileNotFound
	}
	if _, ok := e.orders[principal]; ok {
		return models.Order{}, ErrOrderExists
	}
	if !price.IsPositive() {
		return models.Order{}, ErrPriceNotPositive
	}
	if !amount.IsPositive() {
		return models.Order{}, ErrAmountNotPositive
	}
	if _, ok := e.assets[assetCode]; !ok {
		return models.Order{}, ErrAssetNotFound
	}

	now := e.now()
	counters := e.counters
	o := models.Order{
		ID:           counters.NextOrderID,
		Maker:        principal,
		AssetCode:    assetCode,
		CurrencyCode: currencyCode,
		Price:        price,
		Remaining:    amount,
		Reserved:     decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	counters.NextOrderID++

	cs := newChangeset()
	cs.Orders = append(cs.Orders, o)
	cs.Counters = &counters
	in := []transfer{{asset: assetCode, from: principal, to: e.escrow, amount: amount}}
	if err := e.apply(ctx, cs, in); err != nil {
		return models.Order{}, err
	}

	e.orders[principal] = &o
	e.counters = counters
	e.publish("OpenOrder", event("OpenOrder", fields{
		"maker": principal, "order_id": o.ID, "asset": assetCode,
		"currency": currencyCode, "price": price, "amount": amount,
	}))
	return o, nil
}

// IncreaseAmount pulls delta more of the underlying from the maker into
// escrow and adds it to the order's remaining amount.
func (e *Engine) IncreaseAmount(ctx context.Context, principal string, delta decimal.Decimal) (models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !delta.IsPositive() {
		return models.Order{}, ErrAmountNotPositive
	}
	cur, ok := e.orders[principal]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}

	o := *cur
	o.Remaining = o.Remaining.Add(delta)
	o.UpdatedAt = e.now()

	cs := newChangeset()
	cs.Orders = append(cs.Orders, o)
	in := []transfer{{asset: o.AssetCode, from: principal, to: e.escrow, amount: delta}}
	if err := e.apply(ctx, cs, in); err != nil {
		return models.Order{}, err
	}

	*cur = o
	e.publish("IncreaseAmount", orderUpdated(o))
	return o, nil
}

// DecreaseAmount returns delta of the underlying from escrow to the maker.
func (e *Engine) DecreaseAmount(ctx context.Context, principal string, delta decimal.Decimal) (models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !delta.IsPositive() {
		return models.Order{}, ErrAmountNotPositive
	}
	cur, ok := e.orders[principal]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	if delta.GreaterThan(cur.Remaining) {
		return models.Order{}, ErrInsufficientRemaining
	}

	o := *cur
	o.Remaining = o.Remaining.Sub(delta)
	o.UpdatedAt = e.now()

	cs := newChangeset()
	cs.Orders = append(cs.Orders, o)
	out := []transfer{{asset: o.AssetCode, from: e.escrow, to: principal, amount: delta}}
	if err := e.apply(ctx, cs, out); err != nil {
		return models.Order{}, err
	}

	*cur = o
	e.publish("DecreaseAmount", orderUpdated(o))
	return o, nil
}

// CloseOrder refunds the remaining escrowed amount and deletes the order.
// Fails while any deal against the order is still awaiting confirmation.
func (e *Engine) CloseOrder(ctx context.Context, principal string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.profiles[principal]; !ok {
		return ErrProfileNotFound
	}
	cur, ok := e.orders[principal]
	if !ok {
		return ErrOrderNotFound
	}
	if cur.Reserved.IsPositive() {
		return ErrPendingDeals
	}

	cs := newChangeset()
	cs.DeleteOrders = append(cs.DeleteOrders, principal)
	out := []transfer{{asset: cur.AssetCode, from: e.escrow, to: principal, amount: cur.Remaining}}
	if err := e.apply(ctx, cs, out); err != nil {
		return err
	}

	orderID := cur.ID
	delete(e.orders, principal)
	e.publish("CloseOrder", event("CloseOrder", fields{"maker": principal, "order_id": orderID}))
	return nil
}

// GetOrder returns a maker's live order.
func (e *Engine) GetOrder(maker string) (models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[maker]
	if !ok {
		return models.Order{}, ErrOrderNotFound
	}
	return *o, nil
}

// HasOrder reports whether a maker has a live order.
func (e *Engine) HasOrder(maker string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.orders[maker]
	return ok
}

// OrderCount is the total number of orders ever opened.
func (e *Engine) OrderCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters.NextOrderID
}

func orderUpdated(o models.Order) events.Event {
	return event("UpdateOrder", fields{
		"maker": o.Maker, "order_id": o.ID,
		"remaining": o.Remaining, "reserved": o.Reserved,
	})
}
