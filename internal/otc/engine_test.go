package otc

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/xtrntr/otc/internal/models"
	"github.com/xtrntr/otc/internal/rates"
	"github.com/xtrntr/otc/internal/vault"
)

const (
	owner = "0xowner"
	maker = "0xmaker"
	taker = "0xtaker"
	other = "0xother"

	usdt = "USDT"
	dem  = "DEM"
	cny  = "CNY"
)

type fixture struct {
	engine *Engine
	vault  *vault.Memory
	oracle *rates.Oracle
	clock  *time.Time
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Unix(1700000000, 0)
	f := &fixture{
		vault:  vault.NewMemory(),
		oracle: rates.NewOracle(),
		clock:  &now,
		ctx:    context.Background(),
	}
	f.engine = New(Options{
		Owner:  owner,
		Vault:  f.vault,
		Rates:  f.oracle,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return *f.clock },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// registers a profile and funds the address with the underlying asset
func (f *fixture) registerAndFund(t *testing.T, address, asset string, amount string) {
	t.Helper()
	if _, err := f.engine.RegisterProfile(f.ctx, address, "0x01"); err != nil {
		t.Fatalf("register profile for %s: %v", address, err)
	}
	f.vault.Mint(asset, address, dec(amount))
}

func (f *fixture) addAsset(t *testing.T, code string) {
	t.Helper()
	if err := f.engine.AddAssets(f.ctx, owner, []string{code}, []string{"0x" + code}); err != nil {
		t.Fatalf("add asset %s: %v", code, err)
	}
}

func (f *fixture) setParams(t *testing.T, mutate func(*Params)) {
	t.Helper()
	p := f.engine.Params()
	mutate(&p)
	if err := f.engine.SetParams(f.ctx, owner, p); err != nil {
		t.Fatalf("set params: %v", err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	got, ok := KindOf(err)
	if !ok {
		t.Fatalf("expected %s error, got unclassified: %v", kind, err)
	}
	if got != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, got, err)
	}
}

func mustEqual(t *testing.T, got, want decimal.Decimal, what string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: got %s, want %s", what, got, want)
	}
}

func TestEngine_RestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "1000")

	order, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100"))
	if err != nil {
		t.Fatalf("open order: %v", err)
	}

	profile, err := f.engine.GetProfile(maker)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}

	p := f.engine.Params()
	restored := New(Options{Owner: owner, Vault: f.vault, Rates: f.oracle, Logger: zerolog.Nop()})
	restored.Restore(State{
		Params:   &p,
		Profiles: []models.Profile{profile},
		Assets:   f.engine.Assets(),
		Orders:   []models.Order{order},
		Counters: Counters{NextOrderID: 1, UserCount: 1},
	})

	got, err := restored.GetOrder(maker)
	if err != nil {
		t.Fatalf("restored order: %v", err)
	}
	if got.ID != order.ID || !got.Remaining.Equal(order.Remaining) {
		t.Errorf("restored order mismatch: got %+v, want %+v", got, order)
	}
	if restored.OrderCount() != 1 {
		t.Errorf("expected order count 1, got %d", restored.OrderCount())
	}
}
