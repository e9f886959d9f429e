package otc

import "testing"

func TestOpenOrderValidation(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "1000")

	tests := []struct {
		name   string
		caller string
		asset  string
		price  string
		amount string
		kind   Kind
	}{
		{"NoProfile", other, usdt, "6.33", "100", KindNotFound},
		{"ZeroPrice", maker, usdt, "0", "100", KindConstraint},
		{"NegativeAmount", maker, usdt, "6.33", "-1", KindConstraint},
		{"UnknownAsset", maker, "BTC", "6.33", "100", KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.OpenOrder(f.ctx, tt.caller, tt.asset, cny, dec(tt.price), dec(tt.amount))
			wantKind(t, err, tt.kind)
		})
	}

	if _, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100")); err != nil {
		t.Fatalf("open order: %v", err)
	}
	// one live order per maker
	_, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("50"))
	wantKind(t, err, KindConstraint)
}

func TestOpenOrderEscrowsFullAmount(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "1000")

	order, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100"))
	if err != nil {
		t.Fatalf("open order: %v", err)
	}

	mustEqual(t, order.Remaining, dec("100"), "remaining")
	mustEqual(t, order.Reserved, dec("0"), "reserved")
	mustEqual(t, f.vault.Balance(usdt, maker), dec("900"), "maker balance")
	mustEqual(t, f.vault.Balance(usdt, f.engine.EscrowAddress()), dec("100"), "escrow balance")
}

// An insolvent maker cannot post: the failed escrow pull must leave no
// order behind.
func TestOpenOrderInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "10")

	_, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100"))
	wantKind(t, err, KindConstraint)
	if f.engine.HasOrder(maker) {
		t.Error("order should not exist after failed escrow")
	}
	mustEqual(t, f.vault.Balance(usdt, maker), dec("10"), "maker balance")
}

func TestAdjustAmountRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "1000")

	if _, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100")); err != nil {
		t.Fatalf("open order: %v", err)
	}

	order, err := f.engine.IncreaseAmount(f.ctx, maker, dec("40"))
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	mustEqual(t, order.Remaining, dec("140"), "remaining after increase")
	mustEqual(t, f.vault.Balance(usdt, f.engine.EscrowAddress()), dec("140"), "escrow after increase")

	order, err = f.engine.DecreaseAmount(f.ctx, maker, dec("40"))
	if err != nil {
		t.Fatalf("decrease: %v", err)
	}
	mustEqual(t, order.Remaining, dec("100"), "remaining after decrease")
	mustEqual(t, f.vault.Balance(usdt, maker), dec("900"), "maker balance after round trip")
	mustEqual(t, f.vault.Balance(usdt, f.engine.EscrowAddress()), dec("100"), "escrow after round trip")

	_, err = f.engine.DecreaseAmount(f.ctx, maker, dec("0"))
	wantKind(t, err, KindConstraint)
	_, err = f.engine.DecreaseAmount(f.ctx, maker, dec("200"))
	wantKind(t, err, KindConstraint)
	_, err = f.engine.IncreaseAmount(f.ctx, other, dec("1"))
	wantKind(t, err, KindNotFound)
}

func TestCloseOrderRefundsRemaining(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "1000")

	if _, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100")); err != nil {
		t.Fatalf("open order: %v", err)
	}
	if err := f.engine.CloseOrder(f.ctx, maker); err != nil {
		t.Fatalf("close order: %v", err)
	}

	if f.engine.HasOrder(maker) {
		t.Error("order should be gone after close")
	}
	mustEqual(t, f.vault.Balance(usdt, maker), dec("1000"), "maker balance after close")
	mustEqual(t, f.vault.Balance(usdt, f.engine.EscrowAddress()), dec("0"), "escrow after close")

	wantKind(t, f.engine.CloseOrder(f.ctx, maker), KindNotFound)
	wantKind(t, f.engine.CloseOrder(f.ctx, other), KindNotFound)
}

func TestCloseOrderBlockedByPendingDeal(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.addAsset(t, dem)
	f.registerAndFund(t, maker, usdt, "1000")
	f.registerAndFund(t, taker, dem, "1000")
	f.oracle.SetRate(dem, cny, dec("8"))

	if _, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100")); err != nil {
		t.Fatalf("open order: %v", err)
	}
	deal, err := f.engine.MakeDeal(f.ctx, taker, maker, dec("50"), dem)
	if err != nil {
		t.Fatalf("make deal: %v", err)
	}

	wantKind(t, f.engine.CloseOrder(f.ctx, maker), KindInvalidState)

	if _, err := f.engine.CancelDeal(f.ctx, taker, deal.ID); err != nil {
		t.Fatalf("cancel deal: %v", err)
	}
	if err := f.engine.CloseOrder(f.ctx, maker); err != nil {
		t.Fatalf("close after cancel: %v", err)
	}
}
