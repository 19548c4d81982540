package domain

import (
	"fmt"
	"math"
)

// BinomialTreeModel Cox-Ross-Rubinstein 二叉树模型，支持欧式与美式行权。
// 回溯归纳仅保留相邻两层缓冲，内存 O(N)。
type BinomialTreeModel struct{}

// NewBinomialTreeModel 创建 CRR 二叉树模型。
func NewBinomialTreeModel() *BinomialTreeModel {
	return &BinomialTreeModel{}
}

// Price 以 steps 步离散化定价。欧式结果随 steps 增大收敛于 Black-Scholes。
func (bt *BinomialTreeModel) Price(c ContractSpec, steps int) (*PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if steps < 1 {
		return nil, fmt.Errorf("binomial steps must be >= 1, got %d: %w", steps, ErrInvalidParameter)
	}

	if c.TimeToExpiry == 0 {
		return &PricingResult{Price: c.IntrinsicValue(c.Spot), Method: MethodLattice}, nil
	}
	if c.Volatility == 0 {
		return bt.priceDeterministic(c)
	}

	dt := c.TimeToExpiry / float64(steps)
	u := math.Exp(c.Volatility * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp((c.Rate - c.DividendYield) * dt)
	p := (growth - d) / (u - d)
	if p < 0 || p > 1 || !isFinite(p) {
		return nil, fmt.Errorf("risk-neutral probability %v outside [0,1] (r=%v q=%v sigma=%v dt=%v): %w",
			p, c.Rate, c.DividendYield, c.Volatility, dt, ErrArbitrageViolation)
	}
	disc := math.Exp(-c.Rate * dt)

	// 末层股价与收益。values 与 next 交替复用，避免 O(N^2) 树结构。
	values := make([]float64, steps+1)
	next := make([]float64, steps+1)
	for j := 0; j <= steps; j++ {
		price := c.Spot * math.Pow(u, float64(j)) * math.Pow(d, float64(steps-j))
		values[j] = c.IntrinsicValue(price)
	}

	american := c.Style == StyleAmerican
	u2 := u * u
	for step := steps - 1; step >= 0; step-- {
		// 本层最低节点股价 S*d^step，向上相邻节点差一个 u^2 因子。
		price := c.Spot * math.Pow(d, float64(step))
		for j := 0; j <= step; j++ {
			hold := disc * (p*values[j+1] + (1-p)*values[j])
			if american {
				if exercise := c.IntrinsicValue(price); exercise > hold {
					hold = exercise
				}
			}
			next[j] = hold
			price *= u2
		}
		values, next = next, values
	}

	if !isFinite(values[0]) {
		return nil, fmt.Errorf("binomial root value for K=%v steps=%d: %w", c.Strike, steps, ErrNumericalInstability)
	}
	return &PricingResult{Price: values[0], Method: MethodLattice}, nil
}

// priceDeterministic 处理 sigma=0 的退化树：股价路径确定，无需归纳。
// 美式合约仍可能提前行权，取立即行权与持有到期的较大值。
func (bt *BinomialTreeModel) priceDeterministic(c ContractSpec) (*PricingResult, error) {
	hold := c.ForwardIntrinsicValue()
	price := hold
	if c.Style == StyleAmerican {
		if exercise := c.IntrinsicValue(c.Spot); exercise > price {
			price = exercise
		}
	}
	return &PricingResult{Price: price, Method: MethodLattice}, nil
}
