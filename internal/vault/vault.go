// Package vault holds asset balances. The engine treats the provider as
// an external collaborator behind the otc.Vault interface; Postgres backs
// the server and the seed tool, Memory backs the engine tests.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is a per-process asset ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[string]map[string]decimal.Decimal // asset -> address -> balance
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[string]map[string]decimal.Decimal)}
}

// Mint credits an address out of thin air. Test and seed helper.
func (m *Memory) Mint(asset, addr string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(asset, addr, amount)
}

// Transfer moves amount of asset between addresses. Fails without effect
// when the sender's balance is short.
func (m *Memory) Transfer(ctx context.Context, asset, from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balance(asset, from)
	if bal.LessThan(amount) {
		return fmt.Errorf("insufficient %s balance of %s: have %s, need %s", asset, from, bal, amount)
	}
	m.balances[asset][from] = bal.Sub(amount)
	m.credit(asset, to, amount)
	return nil
}

// Balance reports the holdings of an address in one asset.
func (m *Memory) Balance(asset, addr string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(asset, addr)
}

func (m *Memory) balance(asset, addr string) decimal.Decimal {
	if accounts, ok := m.balances[asset]; ok {
		if bal, ok := accounts[addr]; ok {
			return bal
		}
	}
	return decimal.Zero
}

func (m *Memory) credit(asset, addr string, amount decimal.Decimal) {
	accounts, ok := m.balances[asset]
	if !ok {
		accounts = make(map[string]decimal.Decimal)
		m.balances[asset] = accounts
	}
	accounts[addr] = accounts[addr].Add(amount)
}
