package application

import (
	"fmt"
	"math"
	"strings"

	"github.com/wyfcoding/optionspricing/internal/options/domain"
)

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	Symbol        string
	OptionType    string
	ExerciseStyle string
	StrikePrice   float64
	SpotPrice     float64
	TimeToExpiry  float64
	RiskFreeRate  float64
	Volatility    float64
	DividendYield float64
	// Method 为空时按行权方式选默认：欧式解析、美式格点。
	Method          string
	LatticeSteps    int
	SimulationPaths int
	StepsPerPath    int
	Seed            *uint64
	Antithetic      bool
	// Payoff 仅模拟定价有效：EUROPEAN（默认）、ASIAN、GEOMETRIC_ASIAN，
	// 或障碍型 UP_AND_OUT / DOWN_AND_OUT / UP_AND_IN / DOWN_AND_IN（需 Barrier）。
	Payoff  string
	Barrier float64
}

// SolveImpliedVolCommand 隐含波动率求解命令
type SolveImpliedVolCommand struct {
	Symbol        string
	OptionType    string
	StrikePrice   float64
	SpotPrice     float64
	TimeToExpiry  float64
	RiskFreeRate  float64
	DividendYield float64
	MarketPrice   float64
}

// StrategyLegInput 策略单腿输入
type StrategyLegInput struct {
	OptionType    string
	ExerciseStyle string
	StrikePrice   float64
	TimeToExpiry  float64
	Volatility    float64
	DividendYield float64
	Quantity      float64
}

// ComposeStrategyCommand 策略组合命令。
// Preset 非空时按预置结构生成腿，忽略 Legs；否则逐腿显式给定。
type ComposeStrategyCommand struct {
	Symbol       string
	SpotPrice    float64
	RiskFreeRate float64
	Legs         []StrategyLegInput
	// Preset 预置策略：BULL_CALL_SPREAD、BEAR_PUT_SPREAD、STRADDLE、
	// STRANGLE、IRON_CONDOR、BUTTERFLY。Strikes 按行权价升序给定。
	Preset        string
	Strikes       []float64
	TimeToExpiry  float64
	Volatility    float64
	DividendYield float64
	// 盈亏平衡扫描区间，零值时默认 [0.2*S, 3*S]。
	RangeLow  float64
	RangeHigh float64
}

// presetLegs 把预置策略展开为具体腿。
func (cmd ComposeStrategyCommand) presetLegs() ([]domain.StrategyLeg, error) {
	params := domain.StrategyParams{
		Spot:          cmd.SpotPrice,
		TimeToExpiry:  cmd.TimeToExpiry,
		Rate:          cmd.RiskFreeRate,
		Volatility:    cmd.Volatility,
		DividendYield: cmd.DividendYield,
	}
	k := cmd.Strikes
	need := func(n int) error {
		if len(k) != n {
			return fmt.Errorf("preset %s needs %d strikes, got %d: %w", cmd.Preset, n, len(k), domain.ErrInvalidParameter)
		}
		return nil
	}
	switch strings.ToUpper(cmd.Preset) {
	case "BULL_CALL_SPREAD":
		if err := need(2); err != nil {
			return nil, err
		}
		return domain.BullCallSpread(params, k[0], k[1])
	case "BEAR_PUT_SPREAD":
		if err := need(2); err != nil {
			return nil, err
		}
		return domain.BearPutSpread(params, k[0], k[1])
	case "STRADDLE":
		if err := need(1); err != nil {
			return nil, err
		}
		return domain.LongStraddle(params, k[0])
	case "STRANGLE":
		if err := need(2); err != nil {
			return nil, err
		}
		return domain.LongStrangle(params, k[0], k[1])
	case "IRON_CONDOR":
		if err := need(4); err != nil {
			return nil, err
		}
		return domain.IronCondor(params, k[0], k[1], k[2], k[3])
	case "BUTTERFLY":
		if err := need(3); err != nil {
			return nil, err
		}
		return domain.ButterflySpread(params, k[0], k[1], k[2])
	default:
		return nil, fmt.Errorf("unknown strategy preset %q: %w", cmd.Preset, domain.ErrInvalidParameter)
	}
}

// StrategyResult 策略组合结果 DTO。
// MaxProfit/MaxLoss 为 nil 表示该方向无界（JSON 不能携带 ±Inf）。
type StrategyResult struct {
	Symbol     string              `json:"symbol"`
	LegPrices  []float64           `json:"leg_prices"`
	NetPremium float64             `json:"net_premium"`
	Greeks     domain.GreeksResult `json:"greeks"`
	Breakevens []float64           `json:"breakevens"`
	MaxProfit  *float64            `json:"max_profit"`
	MaxLoss    *float64            `json:"max_loss"`
}

// finitePtr 有限值取地址，±Inf 映射为 nil。
func finitePtr(v float64) *float64 {
	if math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string
	Contracts []PriceOptionCommand
	// Concurrency 并行度，零值时取默认。各合约相互独立，可安全并行。
	Concurrency int
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string
	Results      []*domain.PricingRecord
	SuccessCount int
	FailureCount int
	AverageTime  float64
}

// parseOptionType 解析期权类型字符串，大小写不敏感。
func parseOptionType(s string) (domain.OptionType, error) {
	switch strings.ToUpper(s) {
	case string(domain.OptionTypeCall):
		return domain.OptionTypeCall, nil
	case string(domain.OptionTypePut):
		return domain.OptionTypePut, nil
	default:
		return "", fmt.Errorf("unknown option type %q: %w", s, domain.ErrInvalidParameter)
	}
}

// parseExerciseStyle 解析行权方式，空串默认欧式。
func parseExerciseStyle(s string) (domain.ExerciseStyle, error) {
	switch strings.ToUpper(s) {
	case "", string(domain.StyleEuropean):
		return domain.StyleEuropean, nil
	case string(domain.StyleAmerican):
		return domain.StyleAmerican, nil
	default:
		return "", fmt.Errorf("unknown exercise style %q: %w", s, domain.ErrInvalidParameter)
	}
}

func (cmd PriceOptionCommand) toContract() (domain.ContractSpec, error) {
	typ, err := parseOptionType(cmd.OptionType)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	style, err := parseExerciseStyle(cmd.ExerciseStyle)
	if err != nil {
		return domain.ContractSpec{}, err
	}
	return domain.NewContractSpec(cmd.SpotPrice, cmd.StrikePrice, cmd.TimeToExpiry,
		cmd.RiskFreeRate, cmd.Volatility, cmd.DividendYield, typ, style)
}
