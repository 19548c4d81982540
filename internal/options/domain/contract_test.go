package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNewContractSpecValidation(t *testing.T) {
	cases := []struct {
		name                              string
		spot, strike, ttm, rate, vol, div float64
	}{
		{"zero spot", 0, 100, 1, 0.05, 0.2, 0},
		{"negative spot", -10, 100, 1, 0.05, 0.2, 0},
		{"zero strike", 100, 0, 1, 0.05, 0.2, 0},
		{"negative expiry", 100, 100, -0.1, 0.05, 0.2, 0},
		{"negative volatility", 100, 100, 1, 0.05, -0.2, 0},
		{"nan rate", 100, 100, 1, math.NaN(), 0.2, 0},
		{"inf spot", math.Inf(1), 100, 1, 0.05, 0.2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewContractSpec(tc.spot, tc.strike, tc.ttm, tc.rate, tc.vol, tc.div, OptionTypeCall, StyleEuropean)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestContractSpecBumpCreatesCopy(t *testing.T) {
	c := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)

	bumped, err := c.WithSpot(101)
	if err != nil {
		t.Fatalf("WithSpot: %v", err)
	}
	if c.Spot != 100 {
		t.Errorf("original spot mutated to %v", c.Spot)
	}
	if bumped.Spot != 101 {
		t.Errorf("bumped spot = %v, want 101", bumped.Spot)
	}

	if _, err := c.WithSpot(-1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("WithSpot(-1) error = %v, want ErrInvalidParameter", err)
	}
}

func TestIntrinsicValue(t *testing.T) {
	call := mustContract(t, 105, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	put := mustContract(t, 95, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleEuropean)

	if got := call.IntrinsicValue(105); got != 5 {
		t.Errorf("call intrinsic = %v, want 5", got)
	}
	if got := call.IntrinsicValue(90); got != 0 {
		t.Errorf("OTM call intrinsic = %v, want 0", got)
	}
	if got := put.IntrinsicValue(95); got != 5 {
		t.Errorf("put intrinsic = %v, want 5", got)
	}
	if !call.IsInTheMoney() {
		t.Errorf("call at S=105 K=100 should be ITM")
	}
	if !put.IsInTheMoney() {
		t.Errorf("put at S=95 K=100 should be ITM")
	}
}
