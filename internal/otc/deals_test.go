package otc

import (
	"testing"
	"time"
)

// Standard setup: maker posts 100 USDT at 6.33 CNY, taker holds DEM
// collateral quoted at 8 CNY.
func dealFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.addAsset(t, dem)
	f.registerAndFund(t, maker, usdt, "1000")
	f.registerAndFund(t, taker, dem, "1000")
	f.oracle.SetRate(dem, cny, dec("8"))
	if _, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100")); err != nil {
		t.Fatalf("open order: %v", err)
	}
	return f
}

func TestMakeDealValidation(t *testing.T) {
	f := dealFixture(t)
	if _, err := f.engine.RegisterProfile(f.ctx, other, "0x03"); err != nil {
		t.Fatalf("register other: %v", err)
	}

	tests := []struct {
		name       string
		caller     string
		maker      string
		amount     string
		collateral string
		kind       Kind
	}{
		{"NoProfile", "0xghost", maker, "50", dem, KindNotFound},
		{"SelfTrade", maker, maker, "50", dem, KindConstraint},
		{"NoOrder", taker, other, "50", dem, KindNotFound},
		{"BelowMinimum", taker, maker, "0.5", dem, KindConstraint},
		{"OverRemaining", taker, maker, "150", dem, KindConstraint},
		{"UnknownCollateral", taker, maker, "50", "BTC", KindNotFound},
		{"NoRate", taker, maker, "50", usdt, KindConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.MakeDeal(f.ctx, tt.caller, tt.maker, dec(tt.amount), tt.collateral)
			wantKind(t, err, tt.kind)
		})
	}
}

func TestMakeDealLocksCollateral(t *testing.T) {
	f := dealFixture(t)

	deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("50"), dem)
	if err != nil {
		t.Fatalf("make deal: %v", err)
	}

	// 50 * 6.33 * 0.2 / 8
	want := dec("7.9125")
	col, err := f.engine.GetCollateral(deal.ID)
	if err != nil {
		t.Fatalf("get collateral: %v", err)
	}
	mustEqual(t, col.Locked, want, "locked collateral")
	mustEqual(t, f.vault.Balance(dem, taker), dec("1000").Sub(want), "taker balance")
	mustEqual(t, f.vault.Balance(dem, f.engine.EscrowAddress()), want, "escrow collateral")

	order, _ := f.engine.GetOrder(maker)
	mustEqual(t, order.Remaining, dec("50"), "order remaining")
	mustEqual(t, order.Reserved, dec("50"), "order reserved")
}

func TestMakeDealBlacklistedTaker(t *testing.T) {
	f := dealFixture(t)
	if err := f.engine.AddToBlacklist(f.ctx, owner, taker); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	_, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("50"), dem)
	wantKind(t, err, KindPolicy)
}

// Verified takers skip collateral for small fills, up to the per-address cap.
func TestMakeDealNoCollateralTier(t *testing.T) {
	f := dealFixture(t)
	f.setParams(t, func(p *Params) { p.MaxNoCollateralTradeCount = 2 })
	if err := f.engine.AddToVerifyList(f.ctx, owner, taker); err != nil {
		t.Fatalf("verify: %v", err)
	}

	for i := 0; i < 2; i++ {
		deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("10"), "")
		if err != nil {
			t.Fatalf("deal %d: %v", i, err)
		}
		col, _ := f.engine.GetCollateral(deal.ID)
		mustEqual(t, col.Locked, dec("0"), "locked collateral")
	}
	mustEqual(t, f.vault.Balance(dem, taker), dec("1000"), "taker balance untouched")
	if f.engine.GetReputation(taker).NoCollateralUsed != 2 {
		t.Fatalf("expected 2 uses, got %d", f.engine.GetReputation(taker).NoCollateralUsed)
	}

	// cap exhausted: the next fill needs collateral again
	deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("10"), dem)
	if err != nil {
		t.Fatalf("deal after cap: %v", err)
	}
	col, _ := f.engine.GetCollateral(deal.ID)
	if !col.Locked.IsPositive() {
		t.Error("expected collateral past the cap")
	}

	// fills above the verified ceiling post collateral even under the cap
	f2 := dealFixture(t)
	if err := f2.engine.AddToVerifyList(f2.ctx, owner, taker); err != nil {
		t.Fatalf("verify: %v", err)
	}
	f2.setParams(t, func(p *Params) { p.MaxTradeAmountForVerified = dec("20") })
	big, err := f2.engine.MakeDeal(f2.ctx, taker, maker, dec("50"), dem)
	if err != nil {
		t.Fatalf("big deal: %v", err)
	}
	bigCol, _ := f2.engine.GetCollateral(big.ID)
	if !bigCol.Locked.IsPositive() {
		t.Error("expected collateral above the verified ceiling")
	}
}

func TestCancelDealReleasesEverything(t *testing.T) {
	f := dealFixture(t)
	deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("50"), dem)
	if err != nil {
		t.Fatalf("make deal: %v", err)
	}

	_, err = f.engine.CancelDeal(f.ctx, maker, deal.ID)
	wantKind(t, err, KindUnauthorized)

	canceled, err := f.engine.CancelDeal(f.ctx, taker, deal.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.State.String() != "canceled" {
		t.Errorf("expected canceled state, got %s", canceled.State)
	}

	order, _ := f.engine.GetOrder(maker)
	mustEqual(t, order.Remaining, dec("100"), "remaining restored")
	mustEqual(t, order.Reserved, dec("0"), "reserved cleared")
	mustEqual(t, f.vault.Balance(dem, taker), dec("1000"), "collateral returned")

	// terminal: no cancel twice, no confirm, no redeem
	_, err = f.engine.CancelDeal(f.ctx, taker, deal.ID)
	wantKind(t, err, KindInvalidState)
	_, err = f.engine.ConfirmDeal(f.ctx, maker, deal.ID)
	wantKind(t, err, KindInvalidState)
	wantKind(t, f.engine.RedeemCollateral(f.ctx, taker, deal.ID), KindInvalidState)
}

func TestConfirmDealSettlesWithFee(t *testing.T) {
	f := dealFixture(t)
	deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("50"), dem)
	if err != nil {
		t.Fatalf("make deal: %v", err)
	}

	_, err = f.engine.ConfirmDeal(f.ctx, taker, deal.ID)
	wantKind(t, err, KindUnauthorized)

	confirmed, err := f.engine.ConfirmDeal(f.ctx, maker, deal.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// fee = 50 * 0.003
	mustEqual(t, confirmed.Fee, dec("0.15"), "fee")
	mustEqual(t, f.vault.Balance(usdt, taker), dec("49.85"), "taker payout")
	mustEqual(t, f.vault.Balance(usdt, owner), dec("0.15"), "treasury fee")

	order, _ := f.engine.GetOrder(maker)
	mustEqual(t, order.Remaining, dec("50"), "remaining untouched")
	mustEqual(t, order.Reserved, dec("0"), "reserved consumed")

	_, err = f.engine.ConfirmDeal(f.ctx, maker, deal.ID)
	wantKind(t, err, KindInvalidState)
	_, err = f.engine.CancelDeal(f.ctx, taker, deal.ID)
	wantKind(t, err, KindInvalidState)
}

func TestRedeemCollateralAfterFreeze(t *testing.T) {
	f := dealFixture(t)
	deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("50"), dem)
	if err != nil {
		t.Fatalf("make deal: %v", err)
	}

	// unconfirmed deals have nothing to redeem yet
	wantKind(t, f.engine.RedeemCollateral(f.ctx, taker, deal.ID), KindInvalidState)

	if _, err := f.engine.ConfirmDeal(f.ctx, maker, deal.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	wantKind(t, f.engine.RedeemCollateral(f.ctx, maker, deal.ID), KindUnauthorized)
	wantKind(t, f.engine.RedeemCollateral(f.ctx, taker, deal.ID), KindTiming)

	left, err := f.engine.LeftFrozenTime(deal.ID)
	if err != nil {
		t.Fatalf("frozen time: %v", err)
	}
	if left != 72*time.Hour {
		t.Errorf("expected 72h left, got %s", left)
	}

	f.advance(72 * time.Hour)
	if err := f.engine.RedeemCollateral(f.ctx, taker, deal.ID); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	mustEqual(t, f.vault.Balance(dem, taker), dec("1000"), "collateral back in full")

	left, _ = f.engine.LeftFrozenTime(deal.ID)
	if left != 0 {
		t.Errorf("expected nothing left, got %s", left)
	}
	// redeemed once; there is nothing left to release
	wantKind(t, f.engine.RedeemCollateral(f.ctx, taker, deal.ID), KindInvalidState)
}
