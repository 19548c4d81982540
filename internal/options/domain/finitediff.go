package domain

import (
	"fmt"
	"math"
)

// PriceFunc 任意定价函数，供数值差分复用（树模型、蒙特卡洛等无闭式解的场景）。
type PriceFunc func(ContractSpec) (float64, error)

// GreeksCalculator 中心差分希腊字母计算器。
// 对不可变 ContractSpec 做 bump 复制后重定价，缩放约定与解析希腊字母一致。
type GreeksCalculator struct {
	price PriceFunc
	// bumpRatio 为被扰动参数的相对步长，默认 1%。
	bumpRatio float64
	// clampExpiry 为 true 时，theta 的 T-1/365 越界按 T=0 截断而非报错。
	clampExpiry bool
}

const defaultBumpRatio = 0.01

// NewGreeksCalculator 创建差分计算器。bumpRatio<=0 时使用默认步长。
func NewGreeksCalculator(price PriceFunc, bumpRatio float64, clampExpiry bool) (*GreeksCalculator, error) {
	if price == nil {
		return nil, fmt.Errorf("greeks calculator needs a price function: %w", ErrInvalidParameter)
	}
	if bumpRatio <= 0 {
		bumpRatio = defaultBumpRatio
	}
	return &GreeksCalculator{price: price, bumpRatio: bumpRatio, clampExpiry: clampExpiry}, nil
}

// Delta 标的价格中心差分一阶导。
func (g *GreeksCalculator) Delta(c ContractSpec) (float64, error) {
	h := g.bumpRatio * c.Spot
	up, down, err := g.spotPair(c, h)
	if err != nil {
		return 0, err
	}
	return g.check("delta", (up-down)/(2*h))
}

// Gamma 标的价格中心差分二阶导。
func (g *GreeksCalculator) Gamma(c ContractSpec) (float64, error) {
	h := g.bumpRatio * c.Spot
	up, down, err := g.spotPair(c, h)
	if err != nil {
		return 0, err
	}
	mid, err := g.price(c)
	if err != nil {
		return 0, err
	}
	return g.check("gamma", (up-2*mid+down)/(h*h))
}

// Vega 波动率中心差分，按 1% 波动率变化缩放。
func (g *GreeksCalculator) Vega(c ContractSpec) (float64, error) {
	h := g.bumpRatio * c.Volatility
	if h == 0 {
		h = g.bumpRatio
	}
	if c.Volatility-h < 0 {
		return 0, fmt.Errorf("vega bump sigma-%v below zero: %w", h, ErrBumpOutOfRange)
	}
	upSpec, err := c.WithVolatility(c.Volatility + h)
	if err != nil {
		return 0, fmt.Errorf("vega bump: %w", ErrBumpOutOfRange)
	}
	downSpec, err := c.WithVolatility(c.Volatility - h)
	if err != nil {
		return 0, fmt.Errorf("vega bump: %w", ErrBumpOutOfRange)
	}
	up, down, err := g.pricePair(upSpec, downSpec)
	if err != nil {
		return 0, err
	}
	return g.check("vega", (up-down)/(2*h)/100)
}

// Theta 按一个自然日时间衰减差分，结果即每日 theta。
func (g *GreeksCalculator) Theta(c ContractSpec) (float64, error) {
	const oneDay = 1.0 / 365
	decayed := c.TimeToExpiry - oneDay
	if decayed < 0 {
		if !g.clampExpiry {
			return 0, fmt.Errorf("theta bump T-1/365 below zero (T=%v): %w", c.TimeToExpiry, ErrBumpOutOfRange)
		}
		decayed = 0
	}
	decayedSpec, err := c.WithTimeToExpiry(decayed)
	if err != nil {
		return 0, fmt.Errorf("theta bump: %w", ErrBumpOutOfRange)
	}
	now, err := g.price(c)
	if err != nil {
		return 0, err
	}
	later, err := g.price(decayedSpec)
	if err != nil {
		return 0, err
	}
	return g.check("theta", later-now)
}

// Rho 利率中心差分，按 1% 利率变化缩放。
func (g *GreeksCalculator) Rho(c ContractSpec) (float64, error) {
	h := g.bumpRatio * math.Abs(c.Rate)
	if h == 0 {
		h = g.bumpRatio
	}
	upSpec, err := c.WithRate(c.Rate + h)
	if err != nil {
		return 0, fmt.Errorf("rho bump: %w", ErrBumpOutOfRange)
	}
	downSpec, err := c.WithRate(c.Rate - h)
	if err != nil {
		return 0, fmt.Errorf("rho bump: %w", ErrBumpOutOfRange)
	}
	up, down, err := g.pricePair(upSpec, downSpec)
	if err != nil {
		return 0, err
	}
	return g.check("rho", (up-down)/(2*h)/100)
}

// All 一次性计算五个希腊字母。
func (g *GreeksCalculator) All(c ContractSpec) (*GreeksResult, error) {
	delta, err := g.Delta(c)
	if err != nil {
		return nil, err
	}
	gamma, err := g.Gamma(c)
	if err != nil {
		return nil, err
	}
	vega, err := g.Vega(c)
	if err != nil {
		return nil, err
	}
	theta, err := g.Theta(c)
	if err != nil {
		return nil, err
	}
	rho, err := g.Rho(c)
	if err != nil {
		return nil, err
	}
	return &GreeksResult{Delta: delta, Gamma: gamma, Vega: vega, Theta: theta, Rho: rho}, nil
}

func (g *GreeksCalculator) spotPair(c ContractSpec, h float64) (float64, float64, error) {
	upSpec, err := c.WithSpot(c.Spot + h)
	if err != nil {
		return 0, 0, fmt.Errorf("spot bump: %w", ErrBumpOutOfRange)
	}
	downSpec, err := c.WithSpot(c.Spot - h)
	if err != nil {
		return 0, 0, fmt.Errorf("spot bump: %w", ErrBumpOutOfRange)
	}
	return g.pricePair(upSpec, downSpec)
}

func (g *GreeksCalculator) pricePair(up, down ContractSpec) (float64, float64, error) {
	pu, err := g.price(up)
	if err != nil {
		return 0, 0, err
	}
	pd, err := g.price(down)
	if err != nil {
		return 0, 0, err
	}
	return pu, pd, nil
}

func (g *GreeksCalculator) check(name string, v float64) (float64, error) {
	if !isFinite(v) {
		return 0, fmt.Errorf("finite-difference %s: %w", name, ErrNumericalInstability)
	}
	return v, nil
}
