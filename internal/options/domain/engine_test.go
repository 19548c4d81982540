package domain

import (
	"context"
	"math"
	"testing"
)

func TestEngineCrossModelAgreement(t *testing.T) {
	engine := NewPricingEngine()
	call := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)

	analytic, err := engine.Price(call)
	if err != nil {
		t.Fatalf("analytic: %v", err)
	}
	lattice, err := engine.PriceLattice(call, 500)
	if err != nil {
		t.Fatalf("lattice: %v", err)
	}
	sim, err := engine.PriceMonteCarlo(context.Background(), call, SimulationConfig{
		Paths:        100000,
		StepsPerPath: 1,
		Seed:         seedPtr(2024),
	}, nil)
	if err != nil {
		t.Fatalf("simulation: %v", err)
	}

	if diff := math.Abs(lattice.Price - analytic.Price); diff > 0.01 {
		t.Errorf("lattice vs analytic diff %v, want <= 0.01", diff)
	}
	if diff := math.Abs(sim.Price - analytic.Price); diff > 3*sim.StdError {
		t.Errorf("simulation vs analytic diff %v exceeds 3 stderr %v", diff, 3*sim.StdError)
	}
}

func TestEngineDispatchByStyle(t *testing.T) {
	engine := NewPricingEngine()

	euro := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	res, err := engine.Price(euro)
	if err != nil {
		t.Fatalf("european: %v", err)
	}
	if res.Method != MethodAnalytic {
		t.Errorf("european method = %s, want %s", res.Method, MethodAnalytic)
	}

	amer := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleAmerican)
	res, err = engine.Price(amer)
	if err != nil {
		t.Fatalf("american: %v", err)
	}
	if res.Method != MethodLattice {
		t.Errorf("american method = %s, want %s", res.Method, MethodLattice)
	}

	greeks, err := engine.Greeks(amer)
	if err != nil {
		t.Fatalf("american greeks: %v", err)
	}
	if greeks.Delta < -1 || greeks.Delta > 0 {
		t.Errorf("american put delta = %v, want in [-1,0]", greeks.Delta)
	}
}

func TestEngineCrossCheck(t *testing.T) {
	engine := NewPricingEngine()
	c := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)

	dev, err := engine.CrossCheck(c)
	if err != nil {
		t.Fatalf("CrossCheck: %v", err)
	}
	if dev > 1e-3 {
		t.Errorf("worst analytic/numeric deviation %v, want <= 1e-3", dev)
	}
}

func TestEngineImpliedVolatility(t *testing.T) {
	engine := NewPricingEngine()
	priced := mustContract(t, 100, 100, 1, 0.05, 0.25, 0, OptionTypeCall, StyleEuropean)

	res, err := engine.Price(priced)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	blank := mustContract(t, 100, 100, 1, 0.05, 0, 0, OptionTypeCall, StyleEuropean)
	sigma, err := engine.ImpliedVolatility(blank, res.Price)
	if err != nil {
		t.Fatalf("ImpliedVolatility: %v", err)
	}
	if math.Abs(sigma-0.25) > 1e-6 {
		t.Errorf("implied vol = %v, want 0.25", sigma)
	}
}
