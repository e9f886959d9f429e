package otc

import (
	"context"

	"github.com/xtrntr/otc/internal/models"
)

// AddToVerifyList grants an address the verified tier. Owner only.
func (e *Engine) AddToVerifyList(ctx context.Context, principal, address string) error {
	return e.updateReputation(ctx, principal, address, "AddToVerifyList", func(r *models.ReputationEntry) {
		r.Verified = true
	})
}

// RemoveFromVerifyList revokes the verified tier. Owner only.
func (e *Engine) RemoveFromVerifyList(ctx context.Context, principal, address string) error {
	return e.updateReputation(ctx, principal, address, "RemoveFromVerifyList", func(r *models.ReputationEntry) {
		r.Verified = false
	})
}

// AddToBlacklist blocks an address from making deals. Owner only.
func (e *Engine) AddToBlacklist(ctx context.Context, principal, address string) error {
	return e.updateReputation(ctx, principal, address, "AddToBlacklist", func(r *models.ReputationEntry) {
		r.Blacklisted = true
	})
}

// RemoveFromBlacklist lifts the block. Owner only.
func (e *Engine) RemoveFromBlacklist(ctx context.Context, principal, address string) error {
	return e.updateReputation(ctx, principal, address, "RemoveFromBlacklist", func(r *models.ReputationEntry) {
		r.Blacklisted = false
	})
}

func (e *Engine) updateReputation(ctx context.Context, principal, address, op string, mutate func(*models.ReputationEntry)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if principal != e.owner {
		return ErrNotOwner
	}

	rep := e.reputationFor(address)
	mutate(&rep)

	cs := newChangeset()
	cs.Reputation = append(cs.Reputation, rep)
	if err := e.apply(ctx, cs, nil); err != nil {
		return err
	}

	e.setReputation(rep)
	e.publish(op, event("UpdateReputation", fields{
		"address": address, "verified": rep.Verified,
		"violations": rep.Violations, "blacklisted": rep.Blacklisted,
	}))
	return nil
}

// GetReputation returns the reputation entry for an address. Addresses
// with no history get a zero-valued entry.
func (e *Engine) GetReputation(address string) models.ReputationEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reputationFor(address)
}

// IsVerified reports whether an address holds the verified tier.
func (e *Engine) IsVerified(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.reputation[address]
	return ok && r.Verified
}

// IsBlacklisted reports whether an address is blocked from dealing.
func (e *Engine) IsBlacklisted(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.reputation[address]
	return ok && r.Blacklisted
}
