package domain

import (
	"context"
	"fmt"
)

// PricingEngine 定价引擎门面。
// 按合约行权方式与请求方法分派到解析、格点或模拟实现，各实现均为纯函数，可并发调用。
type PricingEngine struct {
	bs       *BlackScholesModel
	tree     *BinomialTreeModel
	mc       *MonteCarloEngine
	solver   *ImpliedVolatilitySolver
	composer *StrategyComposer
}

// NewPricingEngine 组装全部定价组件。
func NewPricingEngine() *PricingEngine {
	bs := NewBlackScholesModel()
	tree := NewBinomialTreeModel()
	return &PricingEngine{
		bs:       bs,
		tree:     tree,
		mc:       NewMonteCarloEngine(),
		solver:   NewImpliedVolatilitySolver(bs),
		composer: NewStrategyComposer(bs, tree, 0),
	}
}

// Price 默认定价：欧式走闭式解，美式走二叉树。
func (e *PricingEngine) Price(c ContractSpec) (*PricingResult, error) {
	if c.Style == StyleAmerican {
		return e.tree.Price(c, defaultAmericanSteps)
	}
	return e.bs.Price(c)
}

// Greeks 默认希腊字母：欧式解析，美式差分重定价。
func (e *PricingEngine) Greeks(c ContractSpec) (*GreeksResult, error) {
	if c.Style == StyleAmerican {
		calc, err := NewGreeksCalculator(func(spec ContractSpec) (float64, error) {
			res, err := e.tree.Price(spec, defaultAmericanSteps)
			if err != nil {
				return 0, err
			}
			return res.Price, nil
		}, 0, true)
		if err != nil {
			return nil, err
		}
		return calc.All(c)
	}
	return e.bs.Greeks(c)
}

// PriceLattice 指定步数的二叉树定价，欧式美式皆可。
func (e *PricingEngine) PriceLattice(c ContractSpec, steps int) (*PricingResult, error) {
	return e.tree.Price(c, steps)
}

// PriceMonteCarlo 模拟定价。payoff 为 nil 时默认欧式终值收益。
func (e *PricingEngine) PriceMonteCarlo(ctx context.Context, c ContractSpec, cfg SimulationConfig, payoff PayoffFunc) (*PricingResult, error) {
	if payoff == nil {
		payoff = EuropeanPayoff(c.Type, c.Strike)
	}
	return e.mc.Price(ctx, c, cfg, payoff)
}

// ImpliedVolatility 从市场价格反推隐含波动率。
func (e *PricingEngine) ImpliedVolatility(c ContractSpec, marketPrice float64) (float64, error) {
	return e.solver.Solve(c, marketPrice)
}

// ComposeStrategy 聚合多腿策略头寸。
func (e *PricingEngine) ComposeStrategy(legs []StrategyLeg) (*StrategyPosition, error) {
	return e.composer.Compose(legs)
}

// CrossCheck 用差分希腊字母校验解析结果，返回最大相对偏差。
// 仅用于欧式合约的模型一致性诊断。
func (e *PricingEngine) CrossCheck(c ContractSpec) (float64, error) {
	analytic, err := e.bs.Greeks(c)
	if err != nil {
		return 0, err
	}
	calc, err := NewGreeksCalculator(func(spec ContractSpec) (float64, error) {
		res, err := e.bs.Price(spec)
		if err != nil {
			return 0, err
		}
		return res.Price, nil
	}, 0, true)
	if err != nil {
		return 0, err
	}
	numeric, err := calc.All(c)
	if err != nil {
		return 0, err
	}

	var worst float64
	for _, pair := range [][2]float64{
		{analytic.Delta, numeric.Delta},
		{analytic.Vega, numeric.Vega},
		{analytic.Rho, numeric.Rho},
	} {
		if dev := relativeDeviation(pair[0], pair[1]); dev > worst {
			worst = dev
		}
	}
	if !isFinite(worst) {
		return 0, fmt.Errorf("greeks cross-check for K=%v: %w", c.Strike, ErrNumericalInstability)
	}
	return worst, nil
}

func relativeDeviation(a, b float64) float64 {
	denom := a
	if denom < 0 {
		denom = -denom
	}
	if denom < 1e-8 {
		denom = 1e-8
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff / denom
}
