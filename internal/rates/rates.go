// Package rates is the exchange-rate oracle the engine prices collateral
// through. Rates are fed by an administrator and read at a single point
// in time (deal creation); there is no averaging.
package rates

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Oracle holds admin-fed spot rates, keyed by asset and quote currency.
type Oracle struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
}

func NewOracle() *Oracle {
	return &Oracle{rates: make(map[string]decimal.Decimal)}
}

func key(asset, currency string) string { return asset + "/" + currency }

// SetRate records the value of one unit of asset in currency.
func (o *Oracle) SetRate(asset, currency string, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("rate for %s/%s must be positive", asset, currency)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rates[key(asset, currency)] = rate
	return nil
}

// Rate returns the current quote for asset in currency.
func (o *Oracle) Rate(asset, currency string) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	r, ok := o.rates[key(asset, currency)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no rate for %s/%s", asset, currency)
	}
	return r, nil
}
