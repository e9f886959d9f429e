package vault

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres keeps balances in the balances table, so funds survive restarts
// together with the engine state they back. The server and the seed tool
// share it through the database.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Mint credits an address. Admin funding path and seed helper.
func (p *Postgres) Mint(ctx context.Context, asset, addr string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("mint amount must be positive, got %s", amount)
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO balances (asset, address, amount) VALUES ($1, $2, $3)
		ON CONFLICT (asset, address) DO UPDATE SET amount = balances.amount + $3`,
		asset, addr, amount)
	if err != nil {
		return fmt.Errorf("failed to mint: %w", err)
	}
	return nil
}

// Transfer moves amount of asset between addresses in one transaction.
// Fails without effect when the sender's balance is short.
func (p *Postgres) Transfer(ctx context.Context, asset, from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var bal decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT amount FROM balances WHERE asset = $1 AND address = $2 FOR UPDATE",
		asset, from).Scan(&bal)
	switch {
	case err == pgx.ErrNoRows:
		return fmt.Errorf("insufficient %s balance of %s: have 0, need %s", asset, from, amount)
	case err != nil:
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if bal.LessThan(amount) {
		return fmt.Errorf("insufficient %s balance of %s: have %s, need %s", asset, from, bal, amount)
	}

	_, err = tx.Exec(ctx,
		"UPDATE balances SET amount = amount - $3 WHERE asset = $1 AND address = $2",
		asset, from, amount)
	if err != nil {
		return fmt.Errorf("failed to debit: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO balances (asset, address, amount) VALUES ($1, $2, $3)
		ON CONFLICT (asset, address) DO UPDATE SET amount = balances.amount + $3`,
		asset, to, amount)
	if err != nil {
		return fmt.Errorf("failed to credit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Balance reports the holdings of an address in one asset.
func (p *Postgres) Balance(ctx context.Context, asset, addr string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.pool.QueryRow(ctx,
		"SELECT amount FROM balances WHERE asset = $1 AND address = $2",
		asset, addr).Scan(&bal)
	switch {
	case err == pgx.ErrNoRows:
		return decimal.Zero, nil
	case err != nil:
		return decimal.Decimal{}, fmt.Errorf("failed to read balance: %w", err)
	}
	return bal, nil
}
