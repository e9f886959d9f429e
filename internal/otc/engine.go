// Package otc implements the OTC trading, escrow and dispute engine.
//
// Every mutation runs under one lock with all-or-nothing semantics: the
// operation validates its preconditions against current state, moves funds
// through the balance provider, persists one changeset, then commits to
// memory and publishes its events. A returned error means nothing changed.
package otc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xtrntr/otc/internal/events"
	"github.com/xtrntr/otc/internal/models"
)

// Vault is the external balance/transfer provider the engine escrows
// through. Handles registered in the asset registry refer to it.
type Vault interface {
	Transfer(ctx context.Context, asset, from, to string, amount decimal.Decimal) error
}

// RateSource quotes the value of one unit of an asset in a quote currency.
// It is consulted exactly once per deal, at creation time.
type RateSource interface {
	Rate(asset, currency string) (decimal.Decimal, error)
}

// Store persists one engine changeset atomically.
type Store interface {
	Apply(ctx context.Context, cs *Changeset) error
}

// Counters are the process-wide sequence generators. Monotonic, never
// reused even after record deletion.
type Counters struct {
	NextOrderID        int64
	NextDealID         int64
	NextAdjudicationID int64
	UserCount          int
}

// Changeset is the set of record writes produced by one operation.
type Changeset struct {
	Params *Params

	Profiles       []models.Profile
	DeleteProfiles []string

	Assets       []models.Asset
	DeleteAssets []string

	Orders       []models.Order
	DeleteOrders []string // keyed by maker

	Deals         []models.Deal
	Collateral    []models.DealCollateral
	Adjudications []models.Adjudication
	Reputation    []models.ReputationEntry

	Counters *Counters
}

func newChangeset() *Changeset { return &Changeset{} }

// State is the full engine state, used to reload from the store at startup.
type State struct {
	Params        *Params
	Profiles      []models.Profile
	Assets        []models.Asset
	Orders        []models.Order
	Deals         []models.Deal
	Collateral    []models.DealCollateral
	Adjudications []models.Adjudication
	Reputation    []models.ReputationEntry
	Counters      Counters
}

// Options configure a new engine.
type Options struct {
	Owner  string // admin address, checked first on every owner-gated operation
	Escrow string // vault account holding escrowed funds, defaults to "otc:escrow"
	Vault  Vault
	Rates  RateSource
	Store  Store       // optional; nil keeps state in memory only
	Bus    *events.Bus // optional
	Params *Params     // nil uses DefaultParams
	Logger zerolog.Logger
	Now    func() time.Time // optional clock override
}

// Engine is the single-writer OTC ledger.
type Engine struct {
	mu sync.Mutex

	owner  string
	escrow string
	vault  Vault
	rates  RateSource
	store  Store
	bus    *events.Bus
	log    zerolog.Logger
	now    func() time.Time

	params Params

	profiles      map[string]*models.Profile
	assets        map[string]*models.Asset
	orders        map[string]*models.Order // by maker
	deals         map[int64]*models.Deal
	collateral    map[int64]*models.DealCollateral
	adjudications map[int64]*models.Adjudication
	adjByDeal     map[int64]int64
	reputation    map[string]*models.ReputationEntry

	counters Counters
}

// New creates an engine with empty state.
func New(opts Options) *Engine {
	e := &Engine{
		owner:         opts.Owner,
		escrow:        opts.Escrow,
		vault:         opts.Vault,
		rates:         opts.Rates,
		store:         opts.Store,
		bus:           opts.Bus,
		log:           opts.Logger,
		now:           opts.Now,
		params:        DefaultParams(),
		profiles:      make(map[string]*models.Profile),
		assets:        make(map[string]*models.Asset),
		orders:        make(map[string]*models.Order),
		deals:         make(map[int64]*models.Deal),
		collateral:    make(map[int64]*models.DealCollateral),
		adjudications: make(map[int64]*models.Adjudication),
		adjByDeal:     make(map[int64]int64),
		reputation:    make(map[string]*models.ReputationEntry),
	}
	if e.escrow == "" {
		e.escrow = "otc:escrow"
	}
	if e.now == nil {
		e.now = time.Now
	}
	if opts.Params != nil {
		e.params = *opts.Params
	}
	return e
}

// Restore loads previously persisted state. Call before serving traffic.
func (e *Engine) Restore(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.Params != nil {
		e.params = *s.Params
	}
	for i := range s.Profiles {
		p := s.Profiles[i]
		e.profiles[p.Address] = &p
	}
	for i := range s.Assets {
		a := s.Assets[i]
		e.assets[a.Code] = &a
	}
	for i := range s.Orders {
		o := s.Orders[i]
		e.orders[o.Maker] = &o
	}
	for i := range s.Deals {
		d := s.Deals[i]
		e.deals[d.ID] = &d
	}
	for i := range s.Collateral {
		c := s.Collateral[i]
		e.collateral[c.DealID] = &c
	}
	for i := range s.Adjudications {
		a := s.Adjudications[i]
		e.adjudications[a.ID] = &a
		e.adjByDeal[a.DealID] = a.ID
	}
	for i := range s.Reputation {
		r := s.Reputation[i]
		e.reputation[r.Address] = &r
	}
	e.counters = s.Counters
}

// EscrowAddress is the vault account holding escrowed funds.
func (e *Engine) EscrowAddress() string { return e.escrow }

// Owner is the admin address.
func (e *Engine) Owner() string { return e.owner }

type transfer struct {
	asset, from, to string
	amount          decimal.Decimal
}

// apply moves funds and persists the changeset. Transfers already executed
// are reversed if a later step fails, so callers observe no partial effect.
func (e *Engine) apply(ctx context.Context, cs *Changeset, transfers []transfer) error {
	for i, t := range transfers {
		if t.amount.IsZero() {
			continue
		}
		if err := e.vault.Transfer(ctx, t.asset, t.from, t.to, t.amount); err != nil {
			e.reverse(ctx, transfers[:i])
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	if e.store != nil {
		if err := e.store.Apply(ctx, cs); err != nil {
			e.reverse(ctx, transfers)
			return fmt.Errorf("persist changeset: %w", err)
		}
	}
	return nil
}

func (e *Engine) reverse(ctx context.Context, done []transfer) {
	for i := len(done) - 1; i >= 0; i-- {
		t := done[i]
		if t.amount.IsZero() {
			continue
		}
		if err := e.vault.Transfer(ctx, t.asset, t.to, t.from, t.amount); err != nil {
			e.log.Error().Err(err).
				Str("asset", t.asset).Str("from", t.to).Str("to", t.from).
				Stringer("amount", t.amount).
				Msg("failed to reverse transfer")
		}
	}
}

type fields map[string]any

func event(name string, f fields) events.Event {
	return events.Event{Name: name, Fields: f}
}

// publish emits one event batch for a committed operation. All events of a
// batch are delivered together so consumers observe the operation atomically.
func (e *Engine) publish(op string, evs ...events.Event) {
	e.log.Info().Str("op", op).Msg("committed")
	if e.bus != nil {
		e.bus.Publish(events.Batch{Op: op, At: e.now(), Events: evs})
	}
}
