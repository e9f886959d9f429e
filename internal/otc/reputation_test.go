package otc

import "testing"

func TestReputationListsOwnerOnly(t *testing.T) {
	f := newFixture(t)

	wantKind(t, f.engine.AddToVerifyList(f.ctx, maker, taker), KindUnauthorized)
	wantKind(t, f.engine.AddToBlacklist(f.ctx, maker, taker), KindUnauthorized)
	wantKind(t, f.engine.RemoveFromVerifyList(f.ctx, maker, taker), KindUnauthorized)
	wantKind(t, f.engine.RemoveFromBlacklist(f.ctx, maker, taker), KindUnauthorized)
}

func TestVerifyListToggle(t *testing.T) {
	f := newFixture(t)

	if f.engine.IsVerified(taker) {
		t.Error("fresh address should not be verified")
	}
	if err := f.engine.AddToVerifyList(f.ctx, owner, taker); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !f.engine.IsVerified(taker) {
		t.Error("expected verified")
	}
	if err := f.engine.RemoveFromVerifyList(f.ctx, owner, taker); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if f.engine.IsVerified(taker) {
		t.Error("expected unverified after removal")
	}
}

func TestBlacklistToggle(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.AddToBlacklist(f.ctx, owner, taker); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !f.engine.IsBlacklisted(taker) {
		t.Error("expected blacklisted")
	}
	if err := f.engine.RemoveFromBlacklist(f.ctx, owner, taker); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if f.engine.IsBlacklisted(taker) {
		t.Error("expected clean after removal")
	}
	// violation count survives the pardon
	rep := f.engine.GetReputation(taker)
	if rep.Address != taker {
		t.Errorf("expected entry for %s, got %+v", taker, rep)
	}
}
