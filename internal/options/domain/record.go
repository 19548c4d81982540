package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingRecord 定价历史记录实体，供查询与审计。
type PricingRecord struct {
	ID            uint            `json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Symbol        string          `json:"symbol"`
	OptionType    OptionType      `json:"option_type"`
	ExerciseStyle ExerciseStyle   `json:"exercise_style"`
	StrikePrice   decimal.Decimal `json:"strike_price"`
	SpotPrice     decimal.Decimal `json:"spot_price"`
	TimeToExpiry  decimal.Decimal `json:"time_to_expiry"`
	RiskFreeRate  decimal.Decimal `json:"risk_free_rate"`
	Volatility    decimal.Decimal `json:"volatility"`
	DividendYield decimal.Decimal `json:"dividend_yield"`
	OptionPrice   decimal.Decimal `json:"option_price"`
	StdError      decimal.Decimal `json:"std_error"`
	Method        Method          `json:"method"`
	Delta         decimal.Decimal `json:"delta"`
	Gamma         decimal.Decimal `json:"gamma"`
	Vega          decimal.Decimal `json:"vega"`
	Theta         decimal.Decimal `json:"theta"`
	Rho           decimal.Decimal `json:"rho"`
	CalculatedAt  int64           `json:"calculated_at"`
}

// NewPricingRecord 从合约、定价结果与希腊字母构建历史记录。greeks 可为 nil。
func NewPricingRecord(symbol string, c ContractSpec, res *PricingResult, greeks *GreeksResult) *PricingRecord {
	rec := &PricingRecord{
		Symbol:        symbol,
		OptionType:    c.Type,
		ExerciseStyle: c.Style,
		StrikePrice:   decimal.NewFromFloat(c.Strike),
		SpotPrice:     decimal.NewFromFloat(c.Spot),
		TimeToExpiry:  decimal.NewFromFloat(c.TimeToExpiry),
		RiskFreeRate:  decimal.NewFromFloat(c.Rate),
		Volatility:    decimal.NewFromFloat(c.Volatility),
		DividendYield: decimal.NewFromFloat(c.DividendYield),
		OptionPrice:   decimal.NewFromFloat(res.Price),
		StdError:      decimal.NewFromFloat(res.StdError),
		Method:        res.Method,
		CalculatedAt:  time.Now().Unix(),
	}
	if greeks != nil {
		rec.Delta = decimal.NewFromFloat(greeks.Delta)
		rec.Gamma = decimal.NewFromFloat(greeks.Gamma)
		rec.Vega = decimal.NewFromFloat(greeks.Vega)
		rec.Theta = decimal.NewFromFloat(greeks.Theta)
		rec.Rho = decimal.NewFromFloat(greeks.Rho)
	}
	return rec
}

// ImpliedVolRecord 隐含波动率求解历史记录。
type ImpliedVolRecord struct {
	ID                uint            `json:"id"`
	CreatedAt         time.Time       `json:"created_at"`
	Symbol            string          `json:"symbol"`
	OptionType        OptionType      `json:"option_type"`
	StrikePrice       decimal.Decimal `json:"strike_price"`
	SpotPrice         decimal.Decimal `json:"spot_price"`
	TimeToExpiry      decimal.Decimal `json:"time_to_expiry"`
	RiskFreeRate      decimal.Decimal `json:"risk_free_rate"`
	DividendYield     decimal.Decimal `json:"dividend_yield"`
	MarketPrice       decimal.Decimal `json:"market_price"`
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	SolvedAt          int64           `json:"solved_at"`
}

// NewImpliedVolRecord 构建求解历史记录。
func NewImpliedVolRecord(symbol string, c ContractSpec, marketPrice, sigma float64) *ImpliedVolRecord {
	return &ImpliedVolRecord{
		Symbol:            symbol,
		OptionType:        c.Type,
		StrikePrice:       decimal.NewFromFloat(c.Strike),
		SpotPrice:         decimal.NewFromFloat(c.Spot),
		TimeToExpiry:      decimal.NewFromFloat(c.TimeToExpiry),
		RiskFreeRate:      decimal.NewFromFloat(c.Rate),
		DividendYield:     decimal.NewFromFloat(c.DividendYield),
		MarketPrice:       decimal.NewFromFloat(marketPrice),
		ImpliedVolatility: decimal.NewFromFloat(sigma),
		SolvedAt:          time.Now().Unix(),
	}
}

// StrategyRecord 策略组合快照。
// MaxProfit/MaxLoss 可为 ±Inf（无界尾部），持久化层负责编码。
type StrategyRecord struct {
	ID         uint            `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Symbol     string          `json:"symbol"`
	Preset     string          `json:"preset,omitempty"`
	LegCount   int             `json:"leg_count"`
	NetPremium decimal.Decimal `json:"net_premium"`
	Delta      decimal.Decimal `json:"delta"`
	Gamma      decimal.Decimal `json:"gamma"`
	Vega       decimal.Decimal `json:"vega"`
	Theta      decimal.Decimal `json:"theta"`
	Rho        decimal.Decimal `json:"rho"`
	Breakevens []float64       `json:"breakevens"`
	MaxProfit  float64         `json:"max_profit"`
	MaxLoss    float64         `json:"max_loss"`
	ComposedAt int64           `json:"composed_at"`
}

// NewStrategyRecord 从组合头寸构建快照。
func NewStrategyRecord(symbol, preset string, pos *StrategyPosition, breakevens []float64, maxProfit, maxLoss float64) *StrategyRecord {
	return &StrategyRecord{
		Symbol:     symbol,
		Preset:     preset,
		LegCount:   len(pos.Legs),
		NetPremium: decimal.NewFromFloat(pos.NetPremium),
		Delta:      decimal.NewFromFloat(pos.Greeks.Delta),
		Gamma:      decimal.NewFromFloat(pos.Greeks.Gamma),
		Vega:       decimal.NewFromFloat(pos.Greeks.Vega),
		Theta:      decimal.NewFromFloat(pos.Greeks.Theta),
		Rho:        decimal.NewFromFloat(pos.Greeks.Rho),
		Breakevens: breakevens,
		MaxProfit:  maxProfit,
		MaxLoss:    maxLoss,
		ComposedAt: time.Now().Unix(),
	}
}
