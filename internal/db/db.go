package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xtrntr/otc/internal/models"
	"github.com/xtrntr/otc/internal/otc"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// CreateAccount inserts a new login account.
func (db *DB) CreateAccount(ctx context.Context, username, passwordHash, address, role string) (*models.Account, error) {
	a := &models.Account{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO accounts (username, password_hash, address, role) VALUES ($1, $2, $3, $4) RETURNING id, username, password_hash, address, role, created_at",
		username, passwordHash, address, role).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Address, &a.Role, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// GetAccountByUsername retrieves an account by username.
func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	a := &models.Account{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, password_hash, address, role, created_at FROM accounts WHERE username = $1",
		username).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Address, &a.Role, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// Apply writes one engine changeset in a single transaction. Implements
// otc.Store: either everything the operation touched is persisted or
// nothing is.
func (db *DB) Apply(ctx context.Context, cs *otc.Changeset) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyChangeset(ctx, tx, cs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applyChangeset(ctx context.Context, tx pgx.Tx, cs *otc.Changeset) error {
	for _, p := range cs.Profiles {
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (address, hash, created_at, updated_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (address) DO UPDATE SET hash = $2, updated_at = $4`,
			p.Address, p.Hash, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert profile: %w", err)
		}
	}
	for _, addr := range cs.DeleteProfiles {
		if _, err := tx.Exec(ctx, "DELETE FROM profiles WHERE address = $1", addr); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
	}

	for _, a := range cs.Assets {
		_, err := tx.Exec(ctx, `
			INSERT INTO assets (code, handle, added_at) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET handle = $2, added_at = $3`,
			a.Code, a.Handle, a.AddedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert asset: %w", err)
		}
	}
	for _, code := range cs.DeleteAssets {
		if _, err := tx.Exec(ctx, "DELETE FROM assets WHERE code = $1", code); err != nil {
			return fmt.Errorf("failed to delete asset: %w", err)
		}
	}

	for _, o := range cs.Orders {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (maker, id, asset_code, currency_code, price, remaining, reserved, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (maker) DO UPDATE SET remaining = $6, reserved = $7, updated_at = $9`,
			o.Maker, o.ID, o.AssetCode, o.CurrencyCode, o.Price, o.Remaining, o.Reserved, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert order: %w", err)
		}
	}
	for _, maker := range cs.DeleteOrders {
		if _, err := tx.Exec(ctx, "DELETE FROM orders WHERE maker = $1", maker); err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}
	}

	for _, d := range cs.Deals {
		_, err := tx.Exec(ctx, `
			INSERT INTO deals (id, order_id, asset_code, currency_code, price, amount, fee, maker, taker, state, created_at, updated_at, confirmed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET fee = $7, state = $10, updated_at = $12, confirmed_at = $13`,
			d.ID, d.OrderID, d.AssetCode, d.CurrencyCode, d.Price, d.Amount, d.Fee, d.Maker, d.Taker, int(d.State), d.CreatedAt, d.UpdatedAt, nullTime(d.ConfirmedAt))
		if err != nil {
			return fmt.Errorf("failed to upsert deal: %w", err)
		}
	}

	for _, c := range cs.Collateral {
		_, err := tx.Exec(ctx, `
			INSERT INTO deal_collateral (deal_id, asset_code, amount, locked) VALUES ($1, $2, $3, $4)
			ON CONFLICT (deal_id) DO UPDATE SET locked = $4`,
			c.DealID, c.AssetCode, c.Amount, c.Locked)
		if err != nil {
			return fmt.Errorf("failed to upsert collateral: %w", err)
		}
	}

	for _, a := range cs.Adjudications {
		_, err := tx.Exec(ctx, `
			INSERT INTO adjudications (id, deal_id, plaintiff, defendant, arbitrator, winner, evidence, response, verdict, state, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET arbitrator = $5, winner = $6, response = $8, verdict = $9, state = $10, updated_at = $12`,
			a.ID, a.DealID, a.Plaintiff, a.Defendant, a.Arbitrator, a.Winner, a.Evidence, a.Response, a.Verdict, int(a.State), a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert adjudication: %w", err)
		}
	}

	for _, r := range cs.Reputation {
		_, err := tx.Exec(ctx, `
			INSERT INTO reputation (address, verified, no_collateral_used, violations, blacklisted)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (address) DO UPDATE SET verified = $2, no_collateral_used = $3, violations = $4, blacklisted = $5`,
			r.Address, r.Verified, r.NoCollateralUsed, r.Violations, r.Blacklisted)
		if err != nil {
			return fmt.Errorf("failed to upsert reputation: %w", err)
		}
	}

	if cs.Params != nil {
		data, err := json.Marshal(cs.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO engine_params (id, data) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET data = $1`, data)
		if err != nil {
			return fmt.Errorf("failed to upsert params: %w", err)
		}
	}

	if cs.Counters != nil {
		_, err := tx.Exec(ctx, `
			UPDATE engine_counters SET next_order_id = $1, next_deal_id = $2, next_adjudication_id = $3, user_count = $4 WHERE id = 1`,
			cs.Counters.NextOrderID, cs.Counters.NextDealID, cs.Counters.NextAdjudicationID, cs.Counters.UserCount)
		if err != nil {
			return fmt.Errorf("failed to update counters: %w", err)
		}
	}
	return nil
}

// LoadState reads the full persisted engine state for startup restore.
func (db *DB) LoadState(ctx context.Context) (otc.State, error) {
	var s otc.State
	fail := func(what string, err error) (otc.State, error) {
		return otc.State{}, fmt.Errorf("failed to load %s: %w", what, err)
	}

	rows, err := db.Pool.Query(ctx, "SELECT address, hash, created_at, updated_at FROM profiles")
	if err != nil {
		return fail("profiles", err)
	}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.Address, &p.Hash, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return fail("profiles", err)
		}
		s.Profiles = append(s.Profiles, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("profiles", err)
	}

	rows, err = db.Pool.Query(ctx, "SELECT code, handle, added_at FROM assets")
	if err != nil {
		return fail("assets", err)
	}
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.Code, &a.Handle, &a.AddedAt); err != nil {
			rows.Close()
			return fail("assets", err)
		}
		s.Assets = append(s.Assets, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("assets", err)
	}

	rows, err = db.Pool.Query(ctx, "SELECT maker, id, asset_code, currency_code, price, remaining, reserved, created_at, updated_at FROM orders")
	if err != nil {
		return fail("orders", err)
	}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.Maker, &o.ID, &o.AssetCode, &o.CurrencyCode, &o.Price, &o.Remaining, &o.Reserved, &o.CreatedAt, &o.UpdatedAt); err != nil {
			rows.Close()
			return fail("orders", err)
		}
		s.Orders = append(s.Orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("orders", err)
	}

	rows, err = db.Pool.Query(ctx, "SELECT id, order_id, asset_code, currency_code, price, amount, fee, maker, taker, state, created_at, updated_at, confirmed_at FROM deals")
	if err != nil {
		return fail("deals", err)
	}
	for rows.Next() {
		var d models.Deal
		var state int
		var confirmedAt *time.Time
		if err := rows.Scan(&d.ID, &d.OrderID, &d.AssetCode, &d.CurrencyCode, &d.Price, &d.Amount, &d.Fee, &d.Maker, &d.Taker, &state, &d.CreatedAt, &d.UpdatedAt, &confirmedAt); err != nil {
			rows.Close()
			return fail("deals", err)
		}
		d.State = models.DealState(state)
		if confirmedAt != nil {
			d.ConfirmedAt = *confirmedAt
		}
		s.Deals = append(s.Deals, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("deals", err)
	}

	rows, err = db.Pool.Query(ctx, "SELECT deal_id, asset_code, amount, locked FROM deal_collateral")
	if err != nil {
		return fail("collateral", err)
	}
	for rows.Next() {
		var c models.DealCollateral
		if err := rows.Scan(&c.DealID, &c.AssetCode, &c.Amount, &c.Locked); err != nil {
			rows.Close()
			return fail("collateral", err)
		}
		s.Collateral = append(s.Collateral, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("collateral", err)
	}

	rows, err = db.Pool.Query(ctx, "SELECT id, deal_id, plaintiff, defendant, arbitrator, winner, evidence, response, verdict, state, created_at, updated_at FROM adjudications")
	if err != nil {
		return fail("adjudications", err)
	}
	for rows.Next() {
		var a models.Adjudication
		var state int
		if err := rows.Scan(&a.ID, &a.DealID, &a.Plaintiff, &a.Defendant, &a.Arbitrator, &a.Winner, &a.Evidence, &a.Response, &a.Verdict, &state, &a.CreatedAt, &a.UpdatedAt); err != nil {
			rows.Close()
			return fail("adjudications", err)
		}
		a.State = models.AdjudicationState(state)
		s.Adjudications = append(s.Adjudications, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("adjudications", err)
	}

	rows, err = db.Pool.Query(ctx, "SELECT address, verified, no_collateral_used, violations, blacklisted FROM reputation")
	if err != nil {
		return fail("reputation", err)
	}
	for rows.Next() {
		var r models.ReputationEntry
		if err := rows.Scan(&r.Address, &r.Verified, &r.NoCollateralUsed, &r.Violations, &r.Blacklisted); err != nil {
			rows.Close()
			return fail("reputation", err)
		}
		s.Reputation = append(s.Reputation, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fail("reputation", err)
	}

	var data []byte
	err = db.Pool.QueryRow(ctx, "SELECT data FROM engine_params WHERE id = 1").Scan(&data)
	switch {
	case err == pgx.ErrNoRows:
		// defaults apply until the first SetParams
	case err != nil:
		return fail("params", err)
	default:
		var p otc.Params
		if err := json.Unmarshal(data, &p); err != nil {
			return fail("params", err)
		}
		s.Params = &p
	}

	err = db.Pool.QueryRow(ctx,
		"SELECT next_order_id, next_deal_id, next_adjudication_id, user_count FROM engine_counters WHERE id = 1").
		Scan(&s.Counters.NextOrderID, &s.Counters.NextDealID, &s.Counters.NextAdjudicationID, &s.Counters.UserCount)
	if err != nil {
		return fail("counters", err)
	}

	return s, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
