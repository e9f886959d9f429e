package otc

import (
	"context"
	"sort"

	"github.com/xtrntr/otc/internal/models"
)

// AddAssets whitelists underlying asset codes in batch. Owner only; codes
// and handles must pair up and none may already be registered.
func (e *Engine) AddAssets(ctx context.Context, principal string, codes, handles []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if principal != e.owner {
		return ErrNotOwner
	}
	if len(codes) != len(handles) || len(codes) == 0 {
		return ErrAssetMismatch
	}
	for _, code := range codes {
		if _, ok := e.assets[code]; ok {
			return ErrAssetExists
		}
	}

	now := e.now()
	cs := newChangeset()
	added := make([]*models.Asset, 0, len(codes))
	for i, code := range codes {
		a := models.Asset{Code: code, Handle: handles[i], AddedAt: now}
		cs.Assets = append(cs.Assets, a)
		added = append(added, &a)
	}
	if err := e.apply(ctx, cs, nil); err != nil {
		return err
	}

	for _, a := range added {
		e.assets[a.Code] = a
	}
	e.publish("AddAssets", event("AddAssets", fields{"codes": codes}))
	return nil
}

// RemoveAsset delists an asset code. Orders already posted against the
// code stay valid; only new orders are blocked.
func (e *Engine) RemoveAsset(ctx context.Context, principal, code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if principal != e.owner {
		return ErrNotOwner
	}
	if _, ok := e.assets[code]; !ok {
		return ErrAssetNotFound
	}

	cs := newChangeset()
	cs.DeleteAssets = append(cs.DeleteAssets, code)
	if err := e.apply(ctx, cs, nil); err != nil {
		return err
	}

	delete(e.assets, code)
	e.publish("RemoveAsset", event("RemoveAsset", fields{"code": code}))
	return nil
}

// Assets lists the registered assets, ordered by code.
func (e *Engine) Assets() []models.Asset {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Asset, 0, len(e.assets))
	for _, a := range e.assets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// AssetCount is the number of registered assets.
func (e *Engine) AssetCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.assets)
}
