package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarketDataClient 市场数据客户端接口，提供现价与无风险利率。
type MarketDataClient interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetRiskFreeRate(ctx context.Context) (decimal.Decimal, error)
}

// PricingRepository 定价历史仓储接口
type PricingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Save(ctx context.Context, record *PricingRecord) error
	GetLatest(ctx context.Context, symbol string) (*PricingRecord, error)
	GetHistory(ctx context.Context, symbol string, limit int) ([]*PricingRecord, error)
	SaveImpliedVol(ctx context.Context, record *ImpliedVolRecord) error
	SaveStrategy(ctx context.Context, record *StrategyRecord) error
}
