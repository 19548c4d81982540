package domain

import (
	"errors"
	"math"
	"sort"
	"testing"
)

func newComposer() *StrategyComposer {
	bs := NewBlackScholesModel()
	return NewStrategyComposer(bs, NewBinomialTreeModel(), 0)
}

func TestComposeStraddle(t *testing.T) {
	sc := newComposer()
	call := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	put := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleEuropean)

	pos, err := sc.Compose([]StrategyLeg{
		{Contract: call, Quantity: 1},
		{Contract: put, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	bs := NewBlackScholesModel()
	cRes, _ := bs.Price(call)
	pRes, _ := bs.Price(put)
	if diff := math.Abs(pos.NetPremium - cRes.Price - pRes.Price); diff > 1e-12 {
		t.Errorf("net premium %v != call+put %v", pos.NetPremium, cRes.Price+pRes.Price)
	}

	// 跨式组合 gamma、vega 叠加为正，delta 按腿线性相加
	if pos.Greeks.Gamma <= 0 {
		t.Errorf("straddle gamma = %v, want > 0", pos.Greeks.Gamma)
	}
	if pos.Greeks.Vega <= 0 {
		t.Errorf("straddle vega = %v, want > 0", pos.Greeks.Vega)
	}
	cGreeks, _ := bs.Greeks(call)
	pGreeks, _ := bs.Greeks(put)
	if diff := math.Abs(pos.Greeks.Delta - cGreeks.Delta - pGreeks.Delta); diff > 1e-12 {
		t.Errorf("straddle delta %v != sum of leg deltas %v", pos.Greeks.Delta, cGreeks.Delta+pGreeks.Delta)
	}
}

func TestStraddleBreakevens(t *testing.T) {
	sc := newComposer()
	call := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	put := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleEuropean)

	pos, err := sc.Compose([]StrategyLeg{
		{Contract: call, Quantity: 1},
		{Contract: put, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	roots, err := pos.Breakevens(1, 300)
	if err != nil {
		t.Fatalf("Breakevens: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("straddle breakevens = %v, want exactly 2", roots)
	}
	sort.Float64s(roots)
	wantLow, wantHigh := 100-pos.NetPremium, 100+pos.NetPremium
	if math.Abs(roots[0]-wantLow) > 0.01 {
		t.Errorf("lower breakeven %v, want %v", roots[0], wantLow)
	}
	if math.Abs(roots[1]-wantHigh) > 0.01 {
		t.Errorf("upper breakeven %v, want %v", roots[1], wantHigh)
	}
}

func TestBullCallSpreadPayoff(t *testing.T) {
	sc := newComposer()
	long := mustContract(t, 100, 95, 0.5, 0.05, 0.25, 0, OptionTypeCall, StyleEuropean)
	short := mustContract(t, 100, 110, 0.5, 0.05, 0.25, 0, OptionTypeCall, StyleEuropean)

	pos, err := sc.Compose([]StrategyLeg{
		{Contract: long, Quantity: 1},
		{Contract: short, Quantity: -1},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if pos.NetPremium <= 0 {
		t.Errorf("bull spread net premium = %v, want > 0 (debit)", pos.NetPremium)
	}

	maxProfit, maxLoss, err := pos.MaxProfitLoss(50, 150)
	if err != nil {
		t.Fatalf("MaxProfitLoss: %v", err)
	}
	if want := 15 - pos.NetPremium; math.Abs(maxProfit-want) > 0.05 {
		t.Errorf("max profit %v, want %v", maxProfit, want)
	}
	if want := -pos.NetPremium; math.Abs(maxLoss-want) > 0.05 {
		t.Errorf("max loss %v, want %v", maxLoss, want)
	}

	roots, err := pos.Breakevens(50, 150)
	if err != nil {
		t.Fatalf("Breakevens: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("bull spread breakevens = %v, want exactly 1", roots)
	}
	if want := 95 + pos.NetPremium; math.Abs(roots[0]-want) > 0.01 {
		t.Errorf("breakeven %v, want %v", roots[0], want)
	}
}

func TestComposeMixedStyles(t *testing.T) {
	sc := newComposer()
	euro := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	amer := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleAmerican)

	pos, err := sc.Compose([]StrategyLeg{
		{Contract: euro, Quantity: 1},
		{Contract: amer, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(pos.LegPrices) != 2 {
		t.Fatalf("leg prices = %v, want 2", pos.LegPrices)
	}
	// 美式看跌不低于同参数欧式看跌
	bs := NewBlackScholesModel()
	euroPutSpec := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleEuropean)
	euroPut, _ := bs.Price(euroPutSpec)
	if pos.LegPrices[1] < euroPut.Price-1e-9 {
		t.Errorf("american put leg %v below european %v", pos.LegPrices[1], euroPut.Price)
	}
}

func TestComposeRejectsBadLegs(t *testing.T) {
	sc := newComposer()
	c := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)

	if _, err := sc.Compose(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty legs error = %v, want ErrInvalidParameter", err)
	}
	if _, err := sc.Compose([]StrategyLeg{{Contract: c, Quantity: 0}}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero quantity error = %v, want ErrInvalidParameter", err)
	}

	other := mustContract(t, 120, 100, 1, 0.05, 0.2, 0, OptionTypePut, StyleEuropean)
	_, err := sc.Compose([]StrategyLeg{
		{Contract: c, Quantity: 1},
		{Contract: other, Quantity: 1},
	})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("mismatched spot error = %v, want ErrInvalidParameter", err)
	}
}

func TestPayoffDiagram(t *testing.T) {
	sc := newComposer()
	call := mustContract(t, 100, 100, 1, 0.05, 0.2, 0, OptionTypeCall, StyleEuropean)
	pos, err := sc.Compose([]StrategyLeg{{Contract: call, Quantity: 1}})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	xs, ys, err := pos.PayoffDiagram(50, 150, 101)
	if err != nil {
		t.Fatalf("PayoffDiagram: %v", err)
	}
	if len(xs) != 101 || len(ys) != 101 {
		t.Fatalf("diagram size = %d/%d, want 101", len(xs), len(ys))
	}
	if xs[0] != 50 || xs[100] != 150 {
		t.Errorf("diagram range [%v, %v], want [50, 150]", xs[0], xs[100])
	}
	// 到期价低于行权价时亏掉全部权利金
	if want := -pos.NetPremium; math.Abs(ys[0]-want) > 1e-12 {
		t.Errorf("payoff at 50 = %v, want %v", ys[0], want)
	}

	if _, _, err := pos.PayoffDiagram(150, 50, 101); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("reversed range error = %v, want ErrInvalidParameter", err)
	}
}

func baseParams() StrategyParams {
	return StrategyParams{Spot: 100, TimeToExpiry: 0.5, Rate: 0.05, Volatility: 0.25}
}

func TestMaxProfitLossUnboundedUpside(t *testing.T) {
	sc := newComposer()
	legs, err := LongStraddle(baseParams(), 100)
	if err != nil {
		t.Fatalf("LongStraddle: %v", err)
	}
	pos, err := sc.Compose(legs)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	maxProfit, maxLoss, err := pos.MaxProfitLoss(20, 300)
	if err != nil {
		t.Fatalf("MaxProfitLoss: %v", err)
	}
	if !math.IsInf(maxProfit, 1) {
		t.Errorf("straddle max profit = %v, want +Inf", maxProfit)
	}
	// 最大亏损为净权利金，受限有界
	if math.IsInf(maxLoss, -1) || math.Abs(maxLoss+pos.NetPremium) > 0.1 {
		t.Errorf("straddle max loss = %v, want %v", maxLoss, -pos.NetPremium)
	}

	// 卖出裸看涨时下行无界
	call := mustContract(t, 100, 100, 0.5, 0.05, 0.25, 0, OptionTypeCall, StyleEuropean)
	short, err := sc.Compose([]StrategyLeg{{Contract: call, Quantity: -1}})
	if err != nil {
		t.Fatalf("Compose short call: %v", err)
	}
	_, shortLoss, err := short.MaxProfitLoss(20, 300)
	if err != nil {
		t.Fatalf("MaxProfitLoss: %v", err)
	}
	if !math.IsInf(shortLoss, -1) {
		t.Errorf("short call max loss = %v, want -Inf", shortLoss)
	}
}

func TestIronCondorCreditAndBounds(t *testing.T) {
	sc := newComposer()
	legs, err := IronCondor(baseParams(), 85, 95, 105, 115)
	if err != nil {
		t.Fatalf("IronCondor: %v", err)
	}
	pos, err := sc.Compose(legs)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	// 铁鹰收取净权利金
	if pos.NetPremium >= 0 {
		t.Errorf("iron condor net premium = %v, want < 0 (credit)", pos.NetPremium)
	}

	maxProfit, maxLoss, err := pos.MaxProfitLoss(40, 200)
	if err != nil {
		t.Fatalf("MaxProfitLoss: %v", err)
	}
	credit := -pos.NetPremium
	if math.Abs(maxProfit-credit) > 0.05 {
		t.Errorf("max profit %v, want credit %v", maxProfit, credit)
	}
	if want := -(10 - credit); math.Abs(maxLoss-want) > 0.05 {
		t.Errorf("max loss %v, want %v", maxLoss, want)
	}
}

func TestButterflyPeaksAtMiddleStrike(t *testing.T) {
	sc := newComposer()
	legs, err := ButterflySpread(baseParams(), 90, 100, 110)
	if err != nil {
		t.Fatalf("ButterflySpread: %v", err)
	}
	pos, err := sc.Compose(legs)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if pos.NetPremium <= 0 {
		t.Errorf("butterfly net premium = %v, want > 0 (debit)", pos.NetPremium)
	}

	atMiddle := pos.PayoffAt(100)
	if want := 10 - pos.NetPremium; math.Abs(atMiddle-want) > 1e-9 {
		t.Errorf("payoff at middle strike = %v, want %v", atMiddle, want)
	}
	// 两翼之外损失净权利金
	for _, terminal := range []float64{80, 120} {
		if got := pos.PayoffAt(terminal); math.Abs(got+pos.NetPremium) > 1e-9 {
			t.Errorf("payoff at %v = %v, want %v", terminal, got, -pos.NetPremium)
		}
	}
}

func TestStrangleWiderThanStraddle(t *testing.T) {
	sc := newComposer()
	p := baseParams()

	straddleLegs, err := LongStraddle(p, 100)
	if err != nil {
		t.Fatalf("LongStraddle: %v", err)
	}
	strangleLegs, err := LongStrangle(p, 90, 110)
	if err != nil {
		t.Fatalf("LongStrangle: %v", err)
	}
	straddle, err := sc.Compose(straddleLegs)
	if err != nil {
		t.Fatalf("Compose straddle: %v", err)
	}
	strangle, err := sc.Compose(strangleLegs)
	if err != nil {
		t.Fatalf("Compose strangle: %v", err)
	}
	// 两腿皆虚值，宽跨式成本低于跨式
	if strangle.NetPremium >= straddle.NetPremium {
		t.Errorf("strangle premium %v not below straddle %v", strangle.NetPremium, straddle.NetPremium)
	}
}

func TestBearPutSpreadProfitsDownside(t *testing.T) {
	sc := newComposer()
	legs, err := BearPutSpread(baseParams(), 90, 105)
	if err != nil {
		t.Fatalf("BearPutSpread: %v", err)
	}
	pos, err := sc.Compose(legs)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if pos.Greeks.Delta >= 0 {
		t.Errorf("bear put spread delta = %v, want < 0", pos.Greeks.Delta)
	}
	if want := 15 - pos.NetPremium; math.Abs(pos.PayoffAt(80)-want) > 1e-9 {
		t.Errorf("payoff at 80 = %v, want %v", pos.PayoffAt(80), want)
	}
}

func TestStrategyConstructorsRejectBadStrikes(t *testing.T) {
	p := baseParams()

	if _, err := BullCallSpread(p, 105, 95); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("inverted bull spread error = %v, want ErrInvalidParameter", err)
	}
	if _, err := BearPutSpread(p, 105, 105); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("equal bear spread strikes error = %v, want ErrInvalidParameter", err)
	}
	if _, err := LongStrangle(p, 110, 90); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("inverted strangle error = %v, want ErrInvalidParameter", err)
	}
	if _, err := IronCondor(p, 85, 105, 95, 115); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("unordered condor strikes error = %v, want ErrInvalidParameter", err)
	}
	if _, err := ButterflySpread(p, 90, 110, 100); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("unordered butterfly strikes error = %v, want ErrInvalidParameter", err)
	}
	if _, err := LongStraddle(p, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("negative strike error = %v, want ErrInvalidParameter", err)
	}
}
