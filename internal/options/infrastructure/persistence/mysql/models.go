package mysql

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionspricing/internal/options/domain"
)

// PricingRecordModel 定价历史数据库模型
type PricingRecordModel struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
	Symbol        string    `gorm:"column:symbol;type:varchar(32);index;not null"`
	OptionType    string    `gorm:"column:option_type;type:varchar(8);not null"`
	ExerciseStyle string    `gorm:"column:exercise_style;type:varchar(16);not null"`
	StrikePrice   string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	SpotPrice     string    `gorm:"column:spot_price;type:decimal(32,18);not null"`
	TimeToExpiry  string    `gorm:"column:time_to_expiry;type:decimal(32,18);not null"`
	RiskFreeRate  string    `gorm:"column:risk_free_rate;type:decimal(32,18)"`
	Volatility    string    `gorm:"column:volatility;type:decimal(32,18)"`
	DividendYield string    `gorm:"column:dividend_yield;type:decimal(32,18)"`
	OptionPrice   string    `gorm:"column:option_price;type:decimal(32,18);not null"`
	StdError      string    `gorm:"column:std_error;type:decimal(32,18)"`
	Method        string    `gorm:"column:method;type:varchar(16);index"`
	Delta         string    `gorm:"column:delta;type:decimal(32,18)"`
	Gamma         string    `gorm:"column:gamma;type:decimal(32,18)"`
	Vega          string    `gorm:"column:vega;type:decimal(32,18)"`
	Theta         string    `gorm:"column:theta;type:decimal(32,18)"`
	Rho           string    `gorm:"column:rho;type:decimal(32,18)"`
	CalculatedAt  int64     `gorm:"column:calculated_at;type:bigint;index;not null"`
}

// TableName 指定表名
func (PricingRecordModel) TableName() string { return "pricing_records" }

func toPricingRecordModel(rec *domain.PricingRecord) *PricingRecordModel {
	if rec == nil {
		return nil
	}
	return &PricingRecordModel{
		ID:            rec.ID,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		Symbol:        rec.Symbol,
		OptionType:    string(rec.OptionType),
		ExerciseStyle: string(rec.ExerciseStyle),
		StrikePrice:   rec.StrikePrice.String(),
		SpotPrice:     rec.SpotPrice.String(),
		TimeToExpiry:  rec.TimeToExpiry.String(),
		RiskFreeRate:  rec.RiskFreeRate.String(),
		Volatility:    rec.Volatility.String(),
		DividendYield: rec.DividendYield.String(),
		OptionPrice:   rec.OptionPrice.String(),
		StdError:      rec.StdError.String(),
		Method:        string(rec.Method),
		Delta:         rec.Delta.String(),
		Gamma:         rec.Gamma.String(),
		Vega:          rec.Vega.String(),
		Theta:         rec.Theta.String(),
		Rho:           rec.Rho.String(),
		CalculatedAt:  rec.CalculatedAt,
	}
}

func toPricingRecord(m *PricingRecordModel) *domain.PricingRecord {
	if m == nil {
		return nil
	}
	return &domain.PricingRecord{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Symbol:        m.Symbol,
		OptionType:    domain.OptionType(m.OptionType),
		ExerciseStyle: domain.ExerciseStyle(m.ExerciseStyle),
		StrikePrice:   parseDecimal(m.StrikePrice),
		SpotPrice:     parseDecimal(m.SpotPrice),
		TimeToExpiry:  parseDecimal(m.TimeToExpiry),
		RiskFreeRate:  parseDecimal(m.RiskFreeRate),
		Volatility:    parseDecimal(m.Volatility),
		DividendYield: parseDecimal(m.DividendYield),
		OptionPrice:   parseDecimal(m.OptionPrice),
		StdError:      parseDecimal(m.StdError),
		Method:        domain.Method(m.Method),
		Delta:         parseDecimal(m.Delta),
		Gamma:         parseDecimal(m.Gamma),
		Vega:          parseDecimal(m.Vega),
		Theta:         parseDecimal(m.Theta),
		Rho:           parseDecimal(m.Rho),
		CalculatedAt:  m.CalculatedAt,
	}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ImpliedVolSolveModel 隐含波动率求解历史数据库模型
type ImpliedVolSolveModel struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	Symbol            string    `gorm:"column:symbol;type:varchar(32);index;not null"`
	OptionType        string    `gorm:"column:option_type;type:varchar(8);not null"`
	StrikePrice       string    `gorm:"column:strike_price;type:decimal(32,18);not null"`
	SpotPrice         string    `gorm:"column:spot_price;type:decimal(32,18);not null"`
	TimeToExpiry      string    `gorm:"column:time_to_expiry;type:decimal(32,18);not null"`
	RiskFreeRate      string    `gorm:"column:risk_free_rate;type:decimal(32,18)"`
	DividendYield     string    `gorm:"column:dividend_yield;type:decimal(32,18)"`
	MarketPrice       string    `gorm:"column:market_price;type:decimal(32,18);not null"`
	ImpliedVolatility string    `gorm:"column:implied_volatility;type:decimal(32,18);not null"`
	SolvedAt          int64     `gorm:"column:solved_at;type:bigint;index;not null"`
}

// TableName 指定表名
func (ImpliedVolSolveModel) TableName() string { return "implied_vol_solves" }

func toImpliedVolSolveModel(rec *domain.ImpliedVolRecord) *ImpliedVolSolveModel {
	if rec == nil {
		return nil
	}
	return &ImpliedVolSolveModel{
		ID:                rec.ID,
		CreatedAt:         rec.CreatedAt,
		Symbol:            rec.Symbol,
		OptionType:        string(rec.OptionType),
		StrikePrice:       rec.StrikePrice.String(),
		SpotPrice:         rec.SpotPrice.String(),
		TimeToExpiry:      rec.TimeToExpiry.String(),
		RiskFreeRate:      rec.RiskFreeRate.String(),
		DividendYield:     rec.DividendYield.String(),
		MarketPrice:       rec.MarketPrice.String(),
		ImpliedVolatility: rec.ImpliedVolatility.String(),
		SolvedAt:          rec.SolvedAt,
	}
}

// StrategySnapshotModel 策略组合快照数据库模型。
// 盈亏边界可为 ±Inf，按字符串列存储。
type StrategySnapshotModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	Symbol     string    `gorm:"column:symbol;type:varchar(32);index;not null"`
	Preset     string    `gorm:"column:preset;type:varchar(32)"`
	LegCount   int       `gorm:"column:leg_count;not null"`
	NetPremium string    `gorm:"column:net_premium;type:decimal(32,18);not null"`
	Delta      string    `gorm:"column:delta;type:decimal(32,18)"`
	Gamma      string    `gorm:"column:gamma;type:decimal(32,18)"`
	Vega       string    `gorm:"column:vega;type:decimal(32,18)"`
	Theta      string    `gorm:"column:theta;type:decimal(32,18)"`
	Rho        string    `gorm:"column:rho;type:decimal(32,18)"`
	Breakevens string    `gorm:"column:breakevens;type:text"`
	MaxProfit  string    `gorm:"column:max_profit;type:varchar(32)"`
	MaxLoss    string    `gorm:"column:max_loss;type:varchar(32)"`
	ComposedAt int64     `gorm:"column:composed_at;type:bigint;index;not null"`
}

// TableName 指定表名
func (StrategySnapshotModel) TableName() string { return "strategy_snapshots" }

func toStrategySnapshotModel(rec *domain.StrategyRecord) *StrategySnapshotModel {
	if rec == nil {
		return nil
	}
	breakevens, _ := json.Marshal(rec.Breakevens)
	return &StrategySnapshotModel{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		Symbol:     rec.Symbol,
		Preset:     rec.Preset,
		LegCount:   rec.LegCount,
		NetPremium: rec.NetPremium.String(),
		Delta:      rec.Delta.String(),
		Gamma:      rec.Gamma.String(),
		Vega:       rec.Vega.String(),
		Theta:      rec.Theta.String(),
		Rho:        rec.Rho.String(),
		Breakevens: string(breakevens),
		MaxProfit:  strconv.FormatFloat(rec.MaxProfit, 'g', -1, 64),
		MaxLoss:    strconv.FormatFloat(rec.MaxLoss, 'g', -1, 64),
		ComposedAt: rec.ComposedAt,
	}
}
