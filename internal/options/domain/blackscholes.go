package domain

import (
	"fmt"
	"math"
)

// BlackScholesModel 欧式期权闭式定价模型。
// 仅接受欧式合约；美式合约请求返回 ErrUnsupportedStyle。
type BlackScholesModel struct{}

// NewBlackScholesModel 创建 Black-Scholes 模型。
func NewBlackScholesModel() *BlackScholesModel {
	return &BlackScholesModel{}
}

// Price 计算欧式期权理论价格。
// 边界策略：T=0 返回内在价值；sigma=0 返回贴现远期内在价值，均不进入 d1 计算。
func (bs *BlackScholesModel) Price(c ContractSpec) (*PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Style != StyleEuropean {
		return nil, fmt.Errorf("black-scholes requested for %s contract: %w", c.Style, ErrUnsupportedStyle)
	}

	if c.TimeToExpiry == 0 {
		return &PricingResult{Price: c.IntrinsicValue(c.Spot), Method: MethodAnalytic}, nil
	}
	if c.Volatility == 0 {
		return &PricingResult{Price: c.ForwardIntrinsicValue(), Method: MethodAnalytic}, nil
	}

	d1, d2 := d1d2(c)
	expRT := math.Exp(-c.Rate * c.TimeToExpiry)
	expQT := math.Exp(-c.DividendYield * c.TimeToExpiry)

	var price float64
	if c.Type == OptionTypeCall {
		price = c.Spot*expQT*normCDF(d1) - c.Strike*expRT*normCDF(d2)
	} else {
		price = c.Strike*expRT*normCDF(-d2) - c.Spot*expQT*normCDF(-d1)
	}
	if !isFinite(price) {
		return nil, fmt.Errorf("black-scholes price for K=%v T=%v: %w", c.Strike, c.TimeToExpiry, ErrNumericalInstability)
	}
	return &PricingResult{Price: price, Method: MethodAnalytic}, nil
}

// Greeks 计算解析希腊字母，约定见 GreeksResult。
// 需要 T>0 且 sigma>0，否则 d1 无定义。
func (bs *BlackScholesModel) Greeks(c ContractSpec) (*GreeksResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Style != StyleEuropean {
		return nil, fmt.Errorf("analytic greeks requested for %s contract: %w", c.Style, ErrUnsupportedStyle)
	}
	if c.TimeToExpiry == 0 || c.Volatility == 0 {
		return nil, fmt.Errorf("analytic greeks need T>0 and sigma>0 (T=%v sigma=%v): %w", c.TimeToExpiry, c.Volatility, ErrInvalidParameter)
	}

	d1, d2 := d1d2(c)
	sqrtT := math.Sqrt(c.TimeToExpiry)
	expRT := math.Exp(-c.Rate * c.TimeToExpiry)
	expQT := math.Exp(-c.DividendYield * c.TimeToExpiry)
	phiD1 := normPDF(d1)

	g := &GreeksResult{
		Gamma: expQT * phiD1 / (c.Spot * c.Volatility * sqrtT),
		Vega:  c.Spot * expQT * phiD1 * sqrtT / 100,
	}
	if c.Type == OptionTypeCall {
		g.Delta = expQT * normCDF(d1)
		g.Theta = (-c.Spot*expQT*phiD1*c.Volatility/(2*sqrtT) - c.Rate*c.Strike*expRT*normCDF(d2) + c.DividendYield*c.Spot*expQT*normCDF(d1)) / 365
		g.Rho = c.Strike * c.TimeToExpiry * expRT * normCDF(d2) / 100
	} else {
		g.Delta = expQT * (normCDF(d1) - 1)
		g.Theta = (-c.Spot*expQT*phiD1*c.Volatility/(2*sqrtT) + c.Rate*c.Strike*expRT*normCDF(-d2) - c.DividendYield*c.Spot*expQT*normCDF(-d1)) / 365
		g.Rho = -c.Strike * c.TimeToExpiry * expRT * normCDF(-d2) / 100
	}
	if !isFinite(g.Delta) || !isFinite(g.Gamma) || !isFinite(g.Vega) || !isFinite(g.Theta) || !isFinite(g.Rho) {
		return nil, fmt.Errorf("analytic greeks for K=%v T=%v: %w", c.Strike, c.TimeToExpiry, ErrNumericalInstability)
	}
	return g, nil
}

// Vega 未缩放的 vega（dPrice/dSigma），供隐含波动率牛顿迭代使用。
func (bs *BlackScholesModel) Vega(c ContractSpec) float64 {
	if c.TimeToExpiry == 0 || c.Volatility == 0 {
		return 0
	}
	d1, _ := d1d2(c)
	return c.Spot * math.Exp(-c.DividendYield*c.TimeToExpiry) * normPDF(d1) * math.Sqrt(c.TimeToExpiry)
}

// d1d2 计算 Black-Scholes 标准化变量。调用方需保证 T>0、sigma>0。
func d1d2(c ContractSpec) (float64, float64) {
	sqrtT := math.Sqrt(c.TimeToExpiry)
	d1 := (math.Log(c.Spot/c.Strike) + (c.Rate-c.DividendYield+0.5*c.Volatility*c.Volatility)*c.TimeToExpiry) / (c.Volatility * sqrtT)
	d2 := d1 - c.Volatility*sqrtT
	return d1, d2
}

// normCDF 标准正态分布累积分布函数
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF 标准正态分布概率密度函数
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
