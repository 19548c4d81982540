package domain

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// PayoffFunc 对一条完整有序价格路径求收益，路径含期初现价，共 steps+1 个点。
// 路径切片仅在本次调用内有效，实现方不得留存。
type PayoffFunc func(path []float64) float64

// SimulationConfig 蒙特卡洛模拟参数。
type SimulationConfig struct {
	Paths        int
	StepsPerPath int
	// Seed 非 nil 时结果可复现；为 nil 时每次调用独立随机。
	Seed *uint64
	// Antithetic 启用对偶变量（Z 与 -Z 配对取均值），降方差且无偏。
	Antithetic bool
}

// Validate 校验模拟参数。
func (cfg SimulationConfig) Validate() error {
	if cfg.Paths < 1 {
		return fmt.Errorf("monte carlo paths must be >= 1, got %d: %w", cfg.Paths, ErrInvalidParameter)
	}
	if cfg.StepsPerPath < 1 {
		return fmt.Errorf("monte carlo steps per path must be >= 1, got %d: %w", cfg.StepsPerPath, ErrInvalidParameter)
	}
	return nil
}

// MonteCarloEngine 风险中性测度下的 GBM 路径模拟器。
// 随机源为调用方种子派生的本地生成器，不共享进程级状态，可安全并发扇出。
type MonteCarloEngine struct{}

// NewMonteCarloEngine 创建蒙特卡洛引擎。
func NewMonteCarloEngine() *MonteCarloEngine {
	return &MonteCarloEngine{}
}

// cancelCheckInterval 每模拟该数量路径检查一次取消信号。
const cancelCheckInterval = 1024

// Price 模拟定价。结果必含标准误与 95% 置信区间，绝不只报单点价格。
func (mc *MonteCarloEngine) Price(ctx context.Context, c ContractSpec, cfg SimulationConfig, payoff PayoffFunc) (*PricingResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if payoff == nil {
		return nil, fmt.Errorf("monte carlo needs a payoff function: %w", ErrInvalidParameter)
	}

	rng := mc.newRNG(cfg.Seed)
	dt := c.TimeToExpiry / float64(cfg.StepsPerPath)
	drift := (c.Rate - c.DividendYield - 0.5*c.Volatility*c.Volatility) * dt
	diffusion := c.Volatility * math.Sqrt(dt)

	path := make([]float64, cfg.StepsPerPath+1)
	var anti []float64
	if cfg.Antithetic {
		anti = make([]float64, cfg.StepsPerPath+1)
	}

	var sum, sumSq float64
	for i := 0; i < cfg.Paths; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("monte carlo cancelled after %d of %d paths: %w", i, cfg.Paths, err)
			}
		}

		sample := mc.simulate(rng, c.Spot, drift, diffusion, path, anti, payoff)
		if !isFinite(sample) {
			return nil, fmt.Errorf("monte carlo payoff at path %d: %w", i, ErrNumericalInstability)
		}
		sum += sample
		sumSq += sample * sample
	}

	m := float64(cfg.Paths)
	mean := sum / m
	discount := math.Exp(-c.Rate * c.TimeToExpiry)
	price := discount * mean

	var stdErr float64
	if cfg.Paths > 1 {
		variance := (sumSq - m*mean*mean) / (m - 1)
		if variance < 0 {
			variance = 0
		}
		stdErr = discount * math.Sqrt(variance/m)
	}
	const z95 = 1.96
	return &PricingResult{
		Price:    price,
		Method:   MethodSimulation,
		StdError: stdErr,
		ConfLow:  price - z95*stdErr,
		ConfHigh: price + z95*stdErr,
	}, nil
}

// simulate 生成一条（或一对对偶）路径并返回单个收益样本。
func (mc *MonteCarloEngine) simulate(rng *rand.Rand, spot, drift, diffusion float64, path, anti []float64, payoff PayoffFunc) float64 {
	path[0] = spot
	if anti == nil {
		for t := 1; t < len(path); t++ {
			z := rng.NormFloat64()
			path[t] = path[t-1] * math.Exp(drift+diffusion*z)
		}
		return payoff(path)
	}

	anti[0] = spot
	for t := 1; t < len(path); t++ {
		z := rng.NormFloat64()
		path[t] = path[t-1] * math.Exp(drift+diffusion*z)
		anti[t] = anti[t-1] * math.Exp(drift-diffusion*z)
	}
	// 对偶收益取均值作为一个样本，保证标准误估计不受路径间相关性干扰。
	return 0.5 * (payoff(path) + payoff(anti))
}

// newRNG 派生调用本地随机源。PCG 由种子完全确定，同种子同参数结果一致。
func (mc *MonteCarloEngine) newRNG(seed *uint64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// EuropeanPayoff 终值内在价值收益，标准欧式看涨/看跌。
func EuropeanPayoff(optionType OptionType, strike float64) PayoffFunc {
	return func(path []float64) float64 {
		terminal := path[len(path)-1]
		if optionType == OptionTypeCall {
			return math.Max(terminal-strike, 0)
		}
		return math.Max(strike-terminal, 0)
	}
}

// AsianPayoff 算术平均价收益，体现路径依赖定价能力。
func AsianPayoff(optionType OptionType, strike float64) PayoffFunc {
	return func(path []float64) float64 {
		var sum float64
		for _, p := range path[1:] {
			sum += p
		}
		avg := sum / float64(len(path)-1)
		return intrinsicAt(optionType, avg, strike)
	}
}

// GeometricAsianPayoff 几何平均价收益，对数域求均值避免溢出。
func GeometricAsianPayoff(optionType OptionType, strike float64) PayoffFunc {
	return func(path []float64) float64 {
		var logSum float64
		for _, p := range path[1:] {
			logSum += math.Log(p)
		}
		avg := math.Exp(logSum / float64(len(path)-1))
		return intrinsicAt(optionType, avg, strike)
	}
}

// BarrierType 障碍期权的敲入/敲出方向。
type BarrierType string

const (
	BarrierUpAndOut   BarrierType = "UP_AND_OUT"
	BarrierDownAndOut BarrierType = "DOWN_AND_OUT"
	BarrierUpAndIn    BarrierType = "UP_AND_IN"
	BarrierDownAndIn  BarrierType = "DOWN_AND_IN"
)

// BarrierPayoff 障碍期权收益。路径任一点触及障碍即判定敲入/敲出，
// 敲出型触障后收益归零，敲入型未触障则收益归零，余下为终值内在价值。
func BarrierPayoff(optionType OptionType, strike float64, barrierType BarrierType, barrier float64) (PayoffFunc, error) {
	if !isFinite(barrier) || barrier <= 0 {
		return nil, fmt.Errorf("barrier level must be positive and finite, got %v: %w", barrier, ErrInvalidParameter)
	}
	var up, knockIn bool
	switch barrierType {
	case BarrierUpAndOut:
		up, knockIn = true, false
	case BarrierDownAndOut:
		up, knockIn = false, false
	case BarrierUpAndIn:
		up, knockIn = true, true
	case BarrierDownAndIn:
		up, knockIn = false, true
	default:
		return nil, fmt.Errorf("unknown barrier type %q: %w", barrierType, ErrInvalidParameter)
	}

	return func(path []float64) float64 {
		hit := false
		for _, p := range path {
			if (up && p >= barrier) || (!up && p <= barrier) {
				hit = true
				break
			}
		}
		if hit != knockIn {
			return 0
		}
		return intrinsicAt(optionType, path[len(path)-1], strike)
	}, nil
}

func intrinsicAt(optionType OptionType, price, strike float64) float64 {
	if optionType == OptionTypeCall {
		return math.Max(price-strike, 0)
	}
	return math.Max(strike-price, 0)
}
