package otc

import (
	"context"

	"github.com/xtrntr/otc/internal/models"
)

// RegisterProfile creates the identity record for the caller. Exactly one
// profile per address.
func (e *Engine) RegisterProfile(ctx context.Context, principal, hash string) (models.Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.profiles[principal]; ok {
		return models.Profile{}, ErrProfileExists
	}

	now := e.now()
	p := models.Profile{Address: principal, Hash: hash, CreatedAt: now, UpdatedAt: now}
	counters := e.counters
	counters.UserCount++

	cs := newChangeset()
	cs.Profiles = append(cs.Profiles, p)
	cs.Counters = &counters
	if err := e.apply(ctx, cs, nil); err != nil {
		return models.Profile{}, err
	}

	e.profiles[principal] = &p
	e.counters = counters
	e.publish("RegisterProfile", event("RegisterProfile", fields{"address": principal, "hash": hash}))
	return p, nil
}

// UpdateProfile replaces the caller's reference hash.
func (e *Engine) UpdateProfile(ctx context.Context, principal, hash string) (models.Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.profiles[principal]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}

	p := *cur
	p.Hash = hash
	p.UpdatedAt = e.now()

	cs := newChangeset()
	cs.Profiles = append(cs.Profiles, p)
	if err := e.apply(ctx, cs, nil); err != nil {
		return models.Profile{}, err
	}

	*cur = p
	e.publish("UpdateProfile", event("UpdateProfile", fields{"address": principal, "hash": hash}))
	return p, nil
}

// DestroyProfile removes the caller's identity record. Profiles carry no
// economic state, so nothing is refunded.
func (e *Engine) DestroyProfile(ctx context.Context, principal string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.profiles[principal]; !ok {
		return ErrProfileNotFound
	}

	counters := e.counters
	counters.UserCount--

	cs := newChangeset()
	cs.DeleteProfiles = append(cs.DeleteProfiles, principal)
	cs.Counters = &counters
	if err := e.apply(ctx, cs, nil); err != nil {
		return err
	}

	delete(e.profiles, principal)
	e.counters = counters
	e.publish("DestroyProfile", event("DestroyProfile", fields{"address": principal}))
	return nil
}

// GetProfile returns the profile for an address.
func (e *Engine) GetProfile(address string) (models.Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[address]
	if !ok {
		return models.Profile{}, ErrProfileNotFound
	}
	return *p, nil
}

// HasProfile reports whether an address has registered.
func (e *Engine) HasProfile(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.profiles[address]
	return ok
}

// UserCount is the number of currently registered profiles.
func (e *Engine) UserCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters.UserCount
}
