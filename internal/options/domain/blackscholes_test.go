package domain

import (
	"errors"
	"math"
	"testing"
)

func mustContract(t *testing.T, spot, strike, ttm, rate, vol, div float64, typ OptionType, style ExerciseStyle) ContractSpec {
	t.Helper()
	c, err := NewContractSpec(spot, strike, ttm, rate, vol, div, typ, style)
	if err != nil {
		t.Fatalf("NewContractSpec: %v", err)
	}
	return c
}

func TestBlackScholesReferencePrice(t *testing.T) {
	bs := NewBlackScholesModel()
	call := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)

	res, err := bs.Price(call)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if math.Abs(res.Price-10.4506) > 1e-4 {
		t.Errorf("ATM call price = %.6f, want 10.4506", res.Price)
	}
	if res.Method != MethodAnalytic {
		t.Errorf("Method = %s, want %s", res.Method, MethodAnalytic)
	}
}

func TestBlackScholesPutCallParity(t *testing.T) {
	bs := NewBlackScholesModel()
	cases := []struct {
		spot, strike, ttm, rate, vol, div float64
	}{
		{100, 100, 1, 0.05, 0.2, 0},
		{100, 110, 0.5, 0.03, 0.35, 0.02},
		{80, 100, 2, 0.01, 0.15, 0},
		{120, 90, 0.25, 0.08, 0.5, 0.01},
	}
	for _, tc := range cases {
		call := mustContract(t, tc.spot, tc.strike, tc.ttm, tc.rate, tc.vol, tc.div, OptionTypeCall, StyleEuropean)
		put := mustContract(t, tc.spot, tc.strike, tc.ttm, tc.rate, tc.vol, tc.div, OptionTypePut, StyleEuropean)

		cRes, err := bs.Price(call)
		if err != nil {
			t.Fatalf("call price: %v", err)
		}
		pRes, err := bs.Price(put)
		if err != nil {
			t.Fatalf("put price: %v", err)
		}
		parity := tc.spot*math.Exp(-tc.div*tc.ttm) - tc.strike*math.Exp(-tc.rate*tc.ttm)
		if diff := math.Abs(cRes.Price - pRes.Price - parity); diff > 1e-6 {
			t.Errorf("parity violated for K=%v: call-put=%v forward=%v diff=%v",
				tc.strike, cRes.Price-pRes.Price, parity, diff)
		}
	}
}

func TestBlackScholesBounds(t *testing.T) {
	bs := NewBlackScholesModel()
	call := mustContract(t, 100, 90, 1, 0.05, 0.3, 0.02, OptionTypeCall, StyleEuropean)
	put := mustContract(t, 100, 110, 1, 0.05, 0.3, 0.02, OptionTypePut, StyleEuropean)

	cRes, err := bs.Price(call)
	if err != nil {
		t.Fatalf("call price: %v", err)
	}
	if upper := 100 * math.Exp(-0.02); cRes.Price > upper {
		t.Errorf("call price %v exceeds discounted spot %v", cRes.Price, upper)
	}
	if lower := call.ForwardIntrinsicValue(); cRes.Price < lower {
		t.Errorf("call price %v below forward intrinsic %v", cRes.Price, lower)
	}

	pRes, err := bs.Price(put)
	if err != nil {
		t.Fatalf("put price: %v", err)
	}
	if upper := 110 * math.Exp(-0.05); pRes.Price > upper {
		t.Errorf("put price %v exceeds discounted strike %v", pRes.Price, upper)
	}
}

func TestBlackScholesEdgePolicies(t *testing.T) {
	bs := NewBlackScholesModel()

	// T=0 返回内在价值
	expired := mustContract(t, 105, 100, 0, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	res, err := bs.Price(expired)
	if err != nil {
		t.Fatalf("Price at expiry: %v", err)
	}
	if res.Price != 5 {
		t.Errorf("price at expiry = %v, want intrinsic 5", res.Price)
	}

	// sigma=0 返回贴现远期内在价值
	deterministic := mustContract(t, 100, 90, 1, 0.05, 0, 0, OptionTypeCall, StyleEuropean)
	res, err = bs.Price(deterministic)
	if err != nil {
		t.Fatalf("Price with zero vol: %v", err)
	}
	want := 100 - 90*math.Exp(-0.05)
	if math.Abs(res.Price-want) > 1e-12 {
		t.Errorf("zero-vol price = %v, want %v", res.Price, want)
	}
}

func TestBlackScholesRejectsAmerican(t *testing.T) {
	bs := NewBlackScholesModel()
	american := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleAmerican)

	if _, err := bs.Price(american); !errors.Is(err, ErrUnsupportedStyle) {
		t.Errorf("Price(american) error = %v, want ErrUnsupportedStyle", err)
	}
	if _, err := bs.Greeks(american); !errors.Is(err, ErrUnsupportedStyle) {
		t.Errorf("Greeks(american) error = %v, want ErrUnsupportedStyle", err)
	}
}

func TestBlackScholesGreeksSanity(t *testing.T) {
	bs := NewBlackScholesModel()
	call := mustContract(t, 100, 100, 0.1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	put := mustContract(t, 100, 100, 0.1, 0.05, 0.2, 0, OptionTypePut, StyleEuropean)

	cg, err := bs.Greeks(call)
	if err != nil {
		t.Fatalf("call greeks: %v", err)
	}
	pg, err := bs.Greeks(put)
	if err != nil {
		t.Fatalf("put greeks: %v", err)
	}

	if cg.Delta < 0 || cg.Delta > 1 {
		t.Errorf("call delta = %v, want in [0,1]", cg.Delta)
	}
	if pg.Delta < -1 || pg.Delta > 0 {
		t.Errorf("put delta = %v, want in [-1,0]", pg.Delta)
	}
	if cg.Gamma < 0 {
		t.Errorf("gamma = %v, want >= 0", cg.Gamma)
	}
	if cg.Vega < 0 {
		t.Errorf("vega = %v, want >= 0", cg.Vega)
	}
	if cg.Theta > 0 {
		t.Errorf("call theta = %v, want <= 0 near expiry without dividends", cg.Theta)
	}
	if pg.Gamma != cg.Gamma {
		t.Errorf("gamma differs between call (%v) and put (%v)", cg.Gamma, pg.Gamma)
	}
	if pg.Vega != cg.Vega {
		t.Errorf("vega differs between call (%v) and put (%v)", cg.Vega, pg.Vega)
	}
}

func TestBlackScholesMonotonicInSpot(t *testing.T) {
	bs := NewBlackScholesModel()
	prev := -1.0
	for spot := 50.0; spot <= 150; spot += 5 {
		c := mustContract(t, spot, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
		res, err := bs.Price(c)
		if err != nil {
			t.Fatalf("Price at S=%v: %v", spot, err)
		}
		if res.Price < prev {
			t.Errorf("call price decreased: S=%v price=%v prev=%v", spot, res.Price, prev)
		}
		prev = res.Price
	}
}
