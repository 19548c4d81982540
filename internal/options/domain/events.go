package domain

import "time"

const (
	OptionPricedEventType            = "OptionPriced"
	GreeksCalculatedEventType        = "GreeksCalculated"
	ImpliedVolatilitySolvedEventType = "ImpliedVolatilitySolved"
	StrategyComposedEventType        = "StrategyComposed"
	BatchPricingCompletedEventType   = "BatchPricingCompleted"
	PricingFailedEventType           = "PricingFailed"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	Symbol        string     `json:"symbol"`
	OptionType    OptionType `json:"option_type"`
	StrikePrice   float64    `json:"strike_price"`
	SpotPrice     float64    `json:"spot_price"`
	TimeToExpiry  float64    `json:"time_to_expiry"`
	Volatility    float64    `json:"volatility"`
	RiskFreeRate  float64    `json:"risk_free_rate"`
	DividendYield float64    `json:"dividend_yield"`
	OptionPrice   float64    `json:"option_price"`
	StdError      float64    `json:"std_error"`
	Method        Method     `json:"method"`
	CalculatedAt  int64      `json:"calculated_at"`
	OccurredOn    time.Time  `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	Symbol       string     `json:"symbol"`
	OptionType   OptionType `json:"option_type"`
	StrikePrice  float64    `json:"strike_price"`
	SpotPrice    float64    `json:"spot_price"`
	Delta        float64    `json:"delta"`
	Gamma        float64    `json:"gamma"`
	Vega         float64    `json:"vega"`
	Theta        float64    `json:"theta"`
	Rho          float64    `json:"rho"`
	CalculatedAt int64      `json:"calculated_at"`
	OccurredOn   time.Time  `json:"occurred_on"`
}

// ImpliedVolatilitySolvedEvent 隐含波动率求解完成事件
type ImpliedVolatilitySolvedEvent struct {
	Symbol            string     `json:"symbol"`
	OptionType        OptionType `json:"option_type"`
	StrikePrice       float64    `json:"strike_price"`
	MarketPrice       float64    `json:"market_price"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	SolvedAt          int64      `json:"solved_at"`
	OccurredOn        time.Time  `json:"occurred_on"`
}

// StrategyComposedEvent 策略组合完成事件
type StrategyComposedEvent struct {
	Symbol     string    `json:"symbol"`
	LegCount   int       `json:"leg_count"`
	NetPremium float64   `json:"net_premium"`
	Delta      float64   `json:"delta"`
	ComposedAt int64     `json:"composed_at"`
	OccurredOn time.Time `json:"occurred_on"`
}

// BatchPricingCompletedEvent 批量定价完成事件
type BatchPricingCompletedEvent struct {
	BatchID     string    `json:"batch_id"`
	Total       int       `json:"total"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CompletedAt int64     `json:"completed_at"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// PricingFailedEvent 定价失败事件
type PricingFailedEvent struct {
	Symbol     string    `json:"symbol"`
	Method     Method    `json:"method"`
	Reason     string    `json:"reason"`
	FailedAt   int64     `json:"failed_at"`
	OccurredOn time.Time `json:"occurred_on"`
}
