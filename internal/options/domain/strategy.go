package domain

import (
	"fmt"
	"math"
)

// StrategyLeg 策略单腿：合约加带符号数量，正为买入、负为卖出。
type StrategyLeg struct {
	Contract ContractSpec
	Quantity float64
}

// StrategyPosition 多腿组合头寸。价格与希腊字母按数量线性聚合。
type StrategyPosition struct {
	Legs       []StrategyLeg
	LegPrices  []float64
	NetPremium float64
	Greeks     GreeksResult
}

// StrategyComposer 多腿策略组合器。
// 欧式腿走解析定价，美式腿走二叉树加差分希腊字母。
type StrategyComposer struct {
	bs   *BlackScholesModel
	tree *BinomialTreeModel
	// americanSteps 美式腿定价的树步数。
	americanSteps int
}

const defaultAmericanSteps = 500

// NewStrategyComposer 创建组合器。americanSteps<=0 时取默认值。
func NewStrategyComposer(bs *BlackScholesModel, tree *BinomialTreeModel, americanSteps int) *StrategyComposer {
	if americanSteps <= 0 {
		americanSteps = defaultAmericanSteps
	}
	return &StrategyComposer{bs: bs, tree: tree, americanSteps: americanSteps}
}

// Compose 聚合多腿头寸。任一腿失败则整体失败，不返回部分结果。
// 要求所有腿共享同一标的现价。
func (sc *StrategyComposer) Compose(legs []StrategyLeg) (*StrategyPosition, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("strategy needs at least one leg: %w", ErrInvalidParameter)
	}
	spot := legs[0].Contract.Spot
	for i, leg := range legs {
		if err := leg.Contract.Validate(); err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		if leg.Quantity == 0 || !isFinite(leg.Quantity) {
			return nil, fmt.Errorf("leg %d quantity must be non-zero and finite, got %v: %w", i, leg.Quantity, ErrInvalidParameter)
		}
		if leg.Contract.Spot != spot {
			return nil, fmt.Errorf("leg %d spot %v differs from shared underlying %v: %w", i, leg.Contract.Spot, spot, ErrInvalidParameter)
		}
	}

	pos := &StrategyPosition{
		Legs:      legs,
		LegPrices: make([]float64, len(legs)),
	}
	for i, leg := range legs {
		price, greeks, err := sc.priceLeg(leg.Contract)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		pos.LegPrices[i] = price
		pos.NetPremium += leg.Quantity * price
		pos.Greeks = pos.Greeks.Add(greeks.Scale(leg.Quantity))
	}
	return pos, nil
}

func (sc *StrategyComposer) priceLeg(c ContractSpec) (float64, *GreeksResult, error) {
	if c.Style == StyleEuropean {
		res, err := sc.bs.Price(c)
		if err != nil {
			return 0, nil, err
		}
		greeks, err := sc.bs.Greeks(c)
		if err != nil {
			return 0, nil, err
		}
		return res.Price, greeks, nil
	}

	res, err := sc.tree.Price(c, sc.americanSteps)
	if err != nil {
		return 0, nil, err
	}
	calc, err := NewGreeksCalculator(func(spec ContractSpec) (float64, error) {
		r, err := sc.tree.Price(spec, sc.americanSteps)
		if err != nil {
			return 0, err
		}
		return r.Price, nil
	}, 0, true)
	if err != nil {
		return 0, nil, err
	}
	greeks, err := calc.All(c)
	if err != nil {
		return 0, nil, err
	}
	return res.Price, greeks, nil
}

// PayoffAt 到期收益：各腿内在价值的线性组合减去净权利金。
func (p *StrategyPosition) PayoffAt(terminal float64) float64 {
	var payoff float64
	for _, leg := range p.Legs {
		payoff += leg.Quantity * leg.Contract.IntrinsicValue(terminal)
	}
	return payoff - p.NetPremium
}

// PayoffDiagram 在 [low, high] 上均匀采样 points 个到期收益点。
func (p *StrategyPosition) PayoffDiagram(low, high float64, points int) ([]float64, []float64, error) {
	if low < 0 || high <= low || points < 2 {
		return nil, nil, fmt.Errorf("payoff diagram range [%v, %v] with %d points: %w", low, high, points, ErrInvalidParameter)
	}
	xs := make([]float64, points)
	ys := make([]float64, points)
	step := (high - low) / float64(points-1)
	for i := 0; i < points; i++ {
		xs[i] = low + float64(i)*step
		ys[i] = p.PayoffAt(xs[i])
	}
	return xs, ys, nil
}

// breakevenSamples 盈亏平衡扫描的网格密度。
const breakevenSamples = 2000

// Breakevens 在调用方给定区间内求全部盈亏平衡点。
// 网格扫描符号变化后二分细化，返回 0 个、1 个或多个根。
func (p *StrategyPosition) Breakevens(low, high float64) ([]float64, error) {
	if low < 0 || high <= low {
		return nil, fmt.Errorf("breakeven range [%v, %v] invalid: %w", low, high, ErrInvalidParameter)
	}
	roots := make([]float64, 0, 2)
	step := (high - low) / breakevenSamples
	prev := p.PayoffAt(low)
	for i := 1; i <= breakevenSamples; i++ {
		x := low + float64(i)*step
		cur := p.PayoffAt(x)
		switch {
		case prev == 0:
			roots = append(roots, x-step)
		case prev*cur < 0:
			roots = append(roots, p.bisect(x-step, x, prev))
		}
		prev = cur
	}
	if prev == 0 {
		roots = append(roots, high)
	}
	return roots, nil
}

func (p *StrategyPosition) bisect(lo, hi, fLo float64) float64 {
	for i := 0; i < 64 && hi-lo > 1e-10; i++ {
		mid := (lo + hi) / 2
		fMid := p.PayoffAt(mid)
		if fMid == 0 {
			return mid
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return (lo + hi) / 2
}

// MaxProfitLoss 区间内最大盈利与最大亏损（网格扫描）。
// 上行尾部斜率不为零时组合无界，对应方向返回 ±Inf；下行受 S≥0 约束始终有界。
func (p *StrategyPosition) MaxProfitLoss(low, high float64) (maxProfit, maxLoss float64, err error) {
	_, ys, err := p.PayoffDiagram(low, high, breakevenSamples+1)
	if err != nil {
		return 0, 0, err
	}
	maxProfit, maxLoss = math.Inf(-1), math.Inf(1)
	for _, y := range ys {
		maxProfit = math.Max(maxProfit, y)
		maxLoss = math.Min(maxLoss, y)
	}

	// 上行尾部斜率 = 看涨腿数量之和。
	var upSlope float64
	for _, leg := range p.Legs {
		if leg.Contract.Type == OptionTypeCall {
			upSlope += leg.Quantity
		}
	}
	if upSlope > 0 {
		maxProfit = math.Inf(1)
	} else if upSlope < 0 {
		maxLoss = math.Inf(-1)
	}
	return maxProfit, maxLoss, nil
}

// strategyLeg 构建共享市场参数的欧式腿。
func strategyLeg(spot, strike, timeToExpiry, rate, volatility, dividendYield float64, typ OptionType, quantity float64) (StrategyLeg, error) {
	c, err := NewContractSpec(spot, strike, timeToExpiry, rate, volatility, dividendYield, typ, StyleEuropean)
	if err != nil {
		return StrategyLeg{}, err
	}
	return StrategyLeg{Contract: c, Quantity: quantity}, nil
}

// StrategyParams 预置策略共享的市场参数。
type StrategyParams struct {
	Spot          float64
	TimeToExpiry  float64
	Rate          float64
	Volatility    float64
	DividendYield float64
}

func (sp StrategyParams) leg(strike float64, typ OptionType, quantity float64) (StrategyLeg, error) {
	return strategyLeg(sp.Spot, strike, sp.TimeToExpiry, sp.Rate, sp.Volatility, sp.DividendYield, typ, quantity)
}

func buildLegs(specs ...func() (StrategyLeg, error)) ([]StrategyLeg, error) {
	legs := make([]StrategyLeg, 0, len(specs))
	for _, build := range specs {
		leg, err := build()
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// BullCallSpread 牛市看涨价差：买入低行权价看涨，卖出高行权价看涨。
// 最大盈利为行权价差减净权利金，最大亏损为净权利金。
func BullCallSpread(p StrategyParams, lowerStrike, upperStrike float64) ([]StrategyLeg, error) {
	if lowerStrike >= upperStrike {
		return nil, fmt.Errorf("bull call spread needs lower strike %v < upper strike %v: %w", lowerStrike, upperStrike, ErrInvalidParameter)
	}
	return buildLegs(
		func() (StrategyLeg, error) { return p.leg(lowerStrike, OptionTypeCall, 1) },
		func() (StrategyLeg, error) { return p.leg(upperStrike, OptionTypeCall, -1) },
	)
}

// BearPutSpread 熊市看跌价差：买入高行权价看跌，卖出低行权价看跌。
func BearPutSpread(p StrategyParams, lowerStrike, upperStrike float64) ([]StrategyLeg, error) {
	if lowerStrike >= upperStrike {
		return nil, fmt.Errorf("bear put spread needs lower strike %v < upper strike %v: %w", lowerStrike, upperStrike, ErrInvalidParameter)
	}
	return buildLegs(
		func() (StrategyLeg, error) { return p.leg(upperStrike, OptionTypePut, 1) },
		func() (StrategyLeg, error) { return p.leg(lowerStrike, OptionTypePut, -1) },
	)
}

// LongStraddle 买入跨式：同行权价各买一张看涨与看跌，押注大幅波动。
// 两个盈亏平衡点位于行权价 ± 总权利金。
func LongStraddle(p StrategyParams, strike float64) ([]StrategyLeg, error) {
	return buildLegs(
		func() (StrategyLeg, error) { return p.leg(strike, OptionTypeCall, 1) },
		func() (StrategyLeg, error) { return p.leg(strike, OptionTypePut, 1) },
	)
}

// LongStrangle 买入宽跨式：买入虚值看跌与虚值看涨，成本低于跨式但平衡点更宽。
func LongStrangle(p StrategyParams, putStrike, callStrike float64) ([]StrategyLeg, error) {
	if putStrike >= callStrike {
		return nil, fmt.Errorf("strangle needs put strike %v < call strike %v: %w", putStrike, callStrike, ErrInvalidParameter)
	}
	return buildLegs(
		func() (StrategyLeg, error) { return p.leg(putStrike, OptionTypePut, 1) },
		func() (StrategyLeg, error) { return p.leg(callStrike, OptionTypeCall, 1) },
	)
}

// IronCondor 铁鹰：卖出看跌与看涨价差各一组，押注标的区间震荡。
// 最大盈利为净权利金收入，最大亏损为价差宽度减净权利金。
func IronCondor(p StrategyParams, putLower, putUpper, callLower, callUpper float64) ([]StrategyLeg, error) {
	if !(putLower < putUpper && putUpper < callLower && callLower < callUpper) {
		return nil, fmt.Errorf("iron condor needs strictly ascending strikes %v < %v < %v < %v: %w",
			putLower, putUpper, callLower, callUpper, ErrInvalidParameter)
	}
	return buildLegs(
		func() (StrategyLeg, error) { return p.leg(putLower, OptionTypePut, 1) },
		func() (StrategyLeg, error) { return p.leg(putUpper, OptionTypePut, -1) },
		func() (StrategyLeg, error) { return p.leg(callLower, OptionTypeCall, -1) },
		func() (StrategyLeg, error) { return p.leg(callUpper, OptionTypeCall, 1) },
	)
}

// ButterflySpread 蝶式价差：买入两翼看涨各一张，卖出中间行权价两张。
// 标的收于中间行权价附近时达到最大盈利。
func ButterflySpread(p StrategyParams, lowerStrike, middleStrike, upperStrike float64) ([]StrategyLeg, error) {
	if !(lowerStrike < middleStrike && middleStrike < upperStrike) {
		return nil, fmt.Errorf("butterfly needs strictly ascending strikes %v < %v < %v: %w",
			lowerStrike, middleStrike, upperStrike, ErrInvalidParameter)
	}
	return buildLegs(
		func() (StrategyLeg, error) { return p.leg(lowerStrike, OptionTypeCall, 1) },
		func() (StrategyLeg, error) { return p.leg(middleStrike, OptionTypeCall, -2) },
		func() (StrategyLeg, error) { return p.leg(upperStrike, OptionTypeCall, 1) },
	)
}
