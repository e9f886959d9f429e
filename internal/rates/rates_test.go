package rates

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSetAndGetRate(t *testing.T) {
	o := NewOracle()

	if _, err := o.Rate("DEM", "CNY"); err == nil {
		t.Fatal("expected missing rate error")
	}

	if err := o.SetRate("DEM", "CNY", decimal.RequireFromString("8")); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	r, err := o.Rate("DEM", "CNY")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !r.Equal(decimal.RequireFromString("8")) {
		t.Errorf("got %s, want 8", r)
	}

	// updates overwrite
	if err := o.SetRate("DEM", "CNY", decimal.RequireFromString("8.5")); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	r, _ = o.Rate("DEM", "CNY")
	if !r.Equal(decimal.RequireFromString("8.5")) {
		t.Errorf("got %s, want 8.5", r)
	}
}

func TestSetRateRejectsNonPositive(t *testing.T) {
	o := NewOracle()
	if err := o.SetRate("DEM", "CNY", decimal.Zero); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if err := o.SetRate("DEM", "CNY", decimal.RequireFromString("-1")); err == nil {
		t.Fatal("expected error for negative rate")
	}
}
