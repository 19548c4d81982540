package domain

import (
	"fmt"
	"math"
)

// OptionType 期权类型
type OptionType string

const (
	OptionTypeCall OptionType = "CALL" // 看涨期权
	OptionTypePut  OptionType = "PUT"  // 看跌期权
)

// ExerciseStyle 行权方式
type ExerciseStyle string

const (
	StyleEuropean ExerciseStyle = "EUROPEAN" // 仅到期日可行权
	StyleAmerican ExerciseStyle = "AMERICAN" // 到期前任意时点可行权
)

// ContractSpec 期权合约参数。
// 构造时校验，之后按值传递、视为不可变；re-parameterization 一律通过 WithXxx
// 产生新副本，不在原值上改字段。
type ContractSpec struct {
	Spot          float64       // 标的现价 S
	Strike        float64       // 行权价 K
	TimeToExpiry  float64       // 距到期时间 T（年）
	Rate          float64       // 无风险利率 r
	Volatility    float64       // 波动率 sigma
	DividendYield float64       // 连续股息率 q
	Type          OptionType    // CALL / PUT
	Style         ExerciseStyle // EUROPEAN / AMERICAN
}

// NewContractSpec 构造并校验合约参数。
func NewContractSpec(spot, strike, timeToExpiry, rate, volatility, dividendYield float64, optionType OptionType, style ExerciseStyle) (ContractSpec, error) {
	c := ContractSpec{
		Spot:          spot,
		Strike:        strike,
		TimeToExpiry:  timeToExpiry,
		Rate:          rate,
		Volatility:    volatility,
		DividendYield: dividendYield,
		Type:          optionType,
		Style:         style,
	}
	if err := c.Validate(); err != nil {
		return ContractSpec{}, err
	}
	return c, nil
}

// Validate 校验合约不变量。
func (c ContractSpec) Validate() error {
	if !isFinite(c.Spot) || c.Spot <= 0 {
		return fmt.Errorf("spot %v must be positive: %w", c.Spot, ErrInvalidParameter)
	}
	if !isFinite(c.Strike) || c.Strike <= 0 {
		return fmt.Errorf("strike %v must be positive: %w", c.Strike, ErrInvalidParameter)
	}
	if !isFinite(c.TimeToExpiry) || c.TimeToExpiry < 0 {
		return fmt.Errorf("time to expiry %v must be non-negative: %w", c.TimeToExpiry, ErrInvalidParameter)
	}
	if !isFinite(c.Rate) {
		return fmt.Errorf("rate %v must be finite: %w", c.Rate, ErrInvalidParameter)
	}
	if !isFinite(c.Volatility) || c.Volatility < 0 {
		return fmt.Errorf("volatility %v must be non-negative: %w", c.Volatility, ErrInvalidParameter)
	}
	if !isFinite(c.DividendYield) {
		return fmt.Errorf("dividend yield %v must be finite: %w", c.DividendYield, ErrInvalidParameter)
	}
	switch c.Type {
	case OptionTypeCall, OptionTypePut:
	default:
		return fmt.Errorf("option type %q: %w", c.Type, ErrInvalidParameter)
	}
	switch c.Style {
	case StyleEuropean, StyleAmerican:
	default:
		return fmt.Errorf("exercise style %q: %w", c.Style, ErrInvalidParameter)
	}
	return nil
}

// WithSpot 返回替换标的现价后的新副本。
func (c ContractSpec) WithSpot(spot float64) (ContractSpec, error) {
	c.Spot = spot
	if err := c.Validate(); err != nil {
		return ContractSpec{}, err
	}
	return c, nil
}

// WithStrike 返回替换行权价后的新副本。
func (c ContractSpec) WithStrike(strike float64) (ContractSpec, error) {
	c.Strike = strike
	if err := c.Validate(); err != nil {
		return ContractSpec{}, err
	}
	return c, nil
}

// WithVolatility 返回替换波动率后的新副本。
func (c ContractSpec) WithVolatility(volatility float64) (ContractSpec, error) {
	c.Volatility = volatility
	if err := c.Validate(); err != nil {
		return ContractSpec{}, err
	}
	return c, nil
}

// WithTimeToExpiry 返回替换到期时间后的新副本。
func (c ContractSpec) WithTimeToExpiry(timeToExpiry float64) (ContractSpec, error) {
	c.TimeToExpiry = timeToExpiry
	if err := c.Validate(); err != nil {
		return ContractSpec{}, err
	}
	return c, nil
}

// WithRate 返回替换无风险利率后的新副本。
func (c ContractSpec) WithRate(rate float64) (ContractSpec, error) {
	c.Rate = rate
	if err := c.Validate(); err != nil {
		return ContractSpec{}, err
	}
	return c, nil
}

// IntrinsicValue 按给定标的价计算内在价值。
func (c ContractSpec) IntrinsicValue(spot float64) float64 {
	if c.Type == OptionTypeCall {
		return math.Max(spot-c.Strike, 0)
	}
	return math.Max(c.Strike-spot, 0)
}

// ForwardIntrinsicValue 零波动率下的确定性价值：贴现后的远期内在价值。
// call: max(0, S e^{-qT} - K e^{-rT})；put 对称。
func (c ContractSpec) ForwardIntrinsicValue() float64 {
	discSpot := c.Spot * math.Exp(-c.DividendYield*c.TimeToExpiry)
	discStrike := c.Strike * math.Exp(-c.Rate*c.TimeToExpiry)
	if c.Type == OptionTypeCall {
		return math.Max(discSpot-discStrike, 0)
	}
	return math.Max(discStrike-discSpot, 0)
}

// IsInTheMoney 当前是否价内。
func (c ContractSpec) IsInTheMoney() bool {
	if c.Type == OptionTypeCall {
		return c.Spot > c.Strike
	}
	return c.Spot < c.Strike
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
