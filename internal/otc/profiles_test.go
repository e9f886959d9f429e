package otc

import "testing"

func TestProfileLifecycle(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.RegisterProfile(f.ctx, maker, "0x01"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !f.engine.HasProfile(maker) {
		t.Error("expected profile to exist")
	}
	if f.engine.HasProfile(other) {
		t.Error("did not expect profile for other")
	}
	if f.engine.UserCount() != 1 {
		t.Errorf("expected user count 1, got %d", f.engine.UserCount())
	}

	// duplicate registration
	_, err := f.engine.RegisterProfile(f.ctx, maker, "0x02")
	wantKind(t, err, KindConstraint)

	// update moves the hash
	updated, err := f.engine.UpdateProfile(f.ctx, maker, "0x02")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Hash != "0x02" {
		t.Errorf("expected hash 0x02, got %s", updated.Hash)
	}

	// update and destroy require an existing profile
	_, err = f.engine.UpdateProfile(f.ctx, other, "0x02")
	wantKind(t, err, KindNotFound)
	wantKind(t, f.engine.DestroyProfile(f.ctx, other), KindNotFound)

	if err := f.engine.DestroyProfile(f.ctx, maker); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if f.engine.UserCount() != 0 {
		t.Errorf("expected user count 0, got %d", f.engine.UserCount())
	}
	if f.engine.HasProfile(maker) {
		t.Error("expected profile to be gone")
	}
}

func TestAssetRegistry(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		caller  string
		codes   []string
		handles []string
		kind    Kind
		wantErr bool
	}{
		{
			name:    "NotOwner",
			caller:  maker,
			codes:   []string{usdt},
			handles: []string{"0xUSDT"},
			kind:    KindUnauthorized,
			wantErr: true,
		},
		{
			name:    "LengthMismatch",
			caller:  owner,
			codes:   []string{usdt, dem},
			handles: []string{"0xUSDT"},
			kind:    KindConstraint,
			wantErr: true,
		},
		{
			name:    "Success",
			caller:  owner,
			codes:   []string{usdt, dem},
			handles: []string{"0xUSDT", "0xDEM"},
		},
		{
			name:    "Duplicate",
			caller:  owner,
			codes:   []string{usdt},
			handles: []string{"0xUSDT"},
			kind:    KindConstraint,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.engine.AddAssets(f.ctx, tt.caller, tt.codes, tt.handles)
			if tt.wantErr {
				wantKind(t, err, tt.kind)
				return
			}
			if err != nil {
				t.Fatalf("add assets: %v", err)
			}
		})
	}

	if f.engine.AssetCount() != 2 {
		t.Fatalf("expected 2 assets, got %d", f.engine.AssetCount())
	}

	wantKind(t, f.engine.RemoveAsset(f.ctx, maker, usdt), KindUnauthorized)
	wantKind(t, f.engine.RemoveAsset(f.ctx, owner, "BTC"), KindNotFound)

	if err := f.engine.RemoveAsset(f.ctx, owner, dem); err != nil {
		t.Fatalf("remove asset: %v", err)
	}
	if f.engine.AssetCount() != 1 {
		t.Errorf("expected 1 asset, got %d", f.engine.AssetCount())
	}
}

// Removing an asset blocks new orders but leaves existing ones alone.
func TestRemoveAssetKeepsOpenOrders(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t, usdt)
	f.registerAndFund(t, maker, usdt, "1000")
	f.registerAndFund(t, other, usdt, "1000")

	if _, err := f.engine.OpenOrder(f.ctx, maker, usdt, cny, dec("6.33"), dec("100")); err != nil {
		t.Fatalf("open order: %v", err)
	}
	if err := f.engine.RemoveAsset(f.ctx, owner, usdt); err != nil {
		t.Fatalf("remove asset: %v", err)
	}

	if !f.engine.HasOrder(maker) {
		t.Error("existing order should survive asset removal")
	}
	_, err := f.engine.OpenOrder(f.ctx, other, usdt, cny, dec("6.33"), dec("100"))
	wantKind(t, err, KindNotFound)
}
