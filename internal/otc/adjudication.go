package otc

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xtrntr/otc/internal/events"
	"github.com/xtrntr/otc/internal/models"
)

// ApplyAdjudication files a dispute over a deal that sat unconfirmed past
// the expiry period. Only the deal's maker may file, and only once per
// deal, ever.
func (e *Engine) ApplyAdjudication(ctx context.Context, principal string, dealID int64, evidence string) (models.Adjudication, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	deal, ok := e.deals[dealID]
	if !ok {
		return models.Adjudication{}, ErrDealNotFound
	}
	if _, ok := e.adjByDeal[dealID]; ok {
		return models.Adjudication{}, ErrAdjudicationExists
	}
	if deal.State != models.DealAwaitingConfirmation {
		return models.Adjudication{}, ErrDealNotOpen
	}
	if principal != deal.Maker {
		return models.Adjudication{}, ErrInvalidPlaintiff
	}
	now := e.now()
	if now.Before(deal.CreatedAt.Add(e.params.DealExpiredPeriod)) {
		return models.Adjudication{}, ErrDealNotExpired
	}

	counters := e.counters
	adj := models.Adjudication{
		ID:         counters.NextAdjudicationID,
		DealID:     dealID,
		Plaintiff:  deal.Maker,
		Defendant:  deal.Taker,
		Arbitrator: e.params.Arbitrator,
		Evidence:   evidence,
		State:      models.AdjudicationApplied,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	counters.NextAdjudicationID++

	cs := newChangeset()
	cs.Adjudications = append(cs.Adjudications, adj)
	cs.Counters = &counters
	if err := e.apply(ctx, cs, nil); err != nil {
		return models.Adjudication{}, err
	}

	e.adjudications[adj.ID] = &adj
	e.adjByDeal[dealID] = adj.ID
	e.counters = counters
	e.publish("ApplyAdjudication", adjudicationUpdated(adj))
	return adj, nil
}

// RespondAdjudication records the defendant's rebuttal. Allowed exactly
// once, and only while the dispute is still in the applied state.
func (e *Engine) RespondAdjudication(ctx context.Context, principal string, adjID int64, response string) (models.Adjudication, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.adjudications[adjID]
	if !ok {
		return models.Adjudication{}, ErrAdjudicationNotFound
	}
	switch cur.State {
	case models.AdjudicationResponded:
		return models.Adjudication{}, ErrAlreadyResponded
	case models.AdjudicationAdjudicated:
		return models.Adjudication{}, ErrAdjudicationFinal
	}
	if principal != cur.Defendant {
		return models.Adjudication{}, ErrNotDefendant
	}

	adj := *cur
	adj.Response = response
	adj.State = models.AdjudicationResponded
	adj.UpdatedAt = e.now()

	cs := newChangeset()
	cs.Adjudications = append(cs.Adjudications, adj)
	if err := e.apply(ctx, cs, nil); err != nil {
		return models.Adjudication{}, err
	}

	*cur = adj
	e.publish("RespondAdjudication", adjudicationUpdated(adj))
	return adj, nil
}

// JudgeAdjudication issues the binding verdict and settles the disputed
// deal. The configured arbitrator may judge once a response arrived, or
// after the respond window lapses; the plaintiff may judge in their own
// favor only when the defendant never responded and the window has lapsed.
// Settlement is internal: the verdict is the only path into a resolved
// deal, there is no public force-settle operation.
func (e *Engine) JudgeAdjudication(ctx context.Context, principal string, adjID int64, winner, verdict string) (models.Adjudication, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.adjudications[adjID]
	if !ok {
		return models.Adjudication{}, ErrAdjudicationNotFound
	}
	if cur.State == models.AdjudicationAdjudicated {
		return models.Adjudication{}, ErrAdjudicationFinal
	}
	if winner != cur.Plaintiff && winner != cur.Defendant {
		return models.Adjudication{}, ErrInvalidWinner
	}

	now := e.now()
	windowLapsed := !now.Before(cur.CreatedAt.Add(e.params.RespondExpiredPeriod))
	switch principal {
	case e.params.Arbitrator:
		if cur.State == models.AdjudicationApplied && !windowLapsed {
			return models.Adjudication{}, ErrRespondPeriodNotElapsed
		}
	case cur.Plaintiff:
		if cur.State != models.AdjudicationApplied {
			return models.Adjudication{}, ErrNotArbitrator
		}
		if !windowLapsed {
			return models.Adjudication{}, ErrRespondPeriodNotElapsed
		}
		if winner != cur.Plaintiff {
			return models.Adjudication{}, ErrInvalidWinner
		}
	default:
		return models.Adjudication{}, ErrNotArbitrator
	}

	deal := e.deals[cur.DealID]
	if deal.State != models.DealAwaitingConfirmation {
		return models.Adjudication{}, ErrDealNotOpen
	}

	adj := *cur
	adj.Winner = winner
	adj.Verdict = verdict
	adj.Arbitrator = principal
	adj.State = models.AdjudicationAdjudicated
	adj.UpdatedAt = now

	order, settled, col, rep, transfers := e.settleDisputed(*deal, winner)

	cs := newChangeset()
	cs.Orders = append(cs.Orders, order)
	cs.Deals = append(cs.Deals, settled)
	cs.Collateral = append(cs.Collateral, col)
	cs.Reputation = append(cs.Reputation, rep)
	cs.Adjudications = append(cs.Adjudications, adj)
	if err := e.apply(ctx, cs, transfers); err != nil {
		return models.Adjudication{}, err
	}

	*e.orders[deal.Maker] = order
	*deal = settled
	*e.collateral[deal.ID] = col
	e.setReputation(rep)
	*cur = adj
	e.publish("JudgeAdjudication",
		orderUpdated(order), dealUpdated(settled),
		adjudicationUpdated(adj),
		event("UpdateReputation", fields{
			"address": rep.Address, "violations": rep.Violations, "blacklisted": rep.Blacklisted,
		}))
	return adj, nil
}

// settleDisputed applies a verdict to an unconfirmed deal: the winner takes
// the disputed principal out of escrow; the loser's collateral is split
// between winner and treasury per the compensation ratios, remainder back
// to the loser; the deal lands in the resolved state; the loser's
// violation count increments and may trip the blacklist threshold.
func (e *Engine) settleDisputed(deal models.Deal, winner string) (models.Order, models.Deal, models.DealCollateral, models.ReputationEntry, []transfer) {
	now := e.now()

	order := *e.orders[deal.Maker]
	order.Reserved = order.Reserved.Sub(deal.Amount)
	order.UpdatedAt = now

	transfers := []transfer{
		{asset: deal.AssetCode, from: e.escrow, to: winner, amount: deal.Amount},
	}

	loser := deal.Maker
	if winner == deal.Maker {
		loser = deal.Taker
	}

	col := *e.collateral[deal.ID]
	if col.Locked.IsPositive() {
		if loser == deal.Taker {
			selfComp := col.Locked.Mul(e.params.SelfCompensationRatio)
			daoComp := col.Locked.Mul(e.params.DAOCompensationRatio)
			remainder := col.Locked.Sub(selfComp).Sub(daoComp)
			transfers = append(transfers,
				transfer{asset: col.AssetCode, from: e.escrow, to: winner, amount: selfComp},
				transfer{asset: col.AssetCode, from: e.escrow, to: e.treasury(), amount: daoComp},
				transfer{asset: col.AssetCode, from: e.escrow, to: loser, amount: remainder},
			)
		} else {
			// the taker won; their own collateral comes back in full
			transfers = append(transfers,
				transfer{asset: col.AssetCode, from: e.escrow, to: deal.Taker, amount: col.Locked})
		}
		col.Locked = decimal.Zero
	}

	deal.State = models.DealResolved
	deal.UpdatedAt = now

	rep := e.reputationFor(loser)
	rep.Violations++
	if rep.Violations >= e.params.ViolationThreshold {
		rep.Blacklisted = true
	}

	return order, deal, col, rep, transfers
}

func (e *Engine) reputationFor(address string) models.ReputationEntry {
	if r, ok := e.reputation[address]; ok {
		return *r
	}
	return models.ReputationEntry{Address: address}
}

func (e *Engine) setReputation(r models.ReputationEntry) {
	if cur, ok := e.reputation[r.Address]; ok {
		*cur = r
		return
	}
	e.reputation[r.Address] = &r
}

// GetAdjudication returns an adjudication by id.
func (e *Engine) GetAdjudication(id int64) (models.Adjudication, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.adjudications[id]
	if !ok {
		return models.Adjudication{}, ErrAdjudicationNotFound
	}
	return *a, nil
}

// GetAdjudicationByDeal returns the adjudication filed against a deal.
func (e *Engine) GetAdjudicationByDeal(dealID int64) (models.Adjudication, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.adjByDeal[dealID]
	if !ok {
		return models.Adjudication{}, ErrAdjudicationNotFound
	}
	return *e.adjudications[id], nil
}

// AdjudicationCount is the total number of disputes ever filed.
func (e *Engine) AdjudicationCount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters.NextAdjudicationID
}

func adjudicationUpdated(a models.Adjudication) events.Event {
	return event("UpdateAdjudication", fields{
		"adjudication_id": a.ID, "deal_id": a.DealID,
		"plaintiff": a.Plaintiff, "defendant": a.Defendant,
		"winner": a.Winner, "state": a.State.String(),
	})
}
