package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/optionspricing/internal/options/domain"
)

// PricingQueryService 处理定价相关的查询操作，不产生副作用。
type PricingQueryService struct {
	engine     *domain.PricingEngine
	repo       domain.PricingRepository
	marketData domain.MarketDataClient
}

// NewPricingQueryService 创建查询服务。
func NewPricingQueryService(engine *domain.PricingEngine, repo domain.PricingRepository, marketData domain.MarketDataClient) *PricingQueryService {
	return &PricingQueryService{
		engine:     engine,
		repo:       repo,
		marketData: marketData,
	}
}

// GetLatest 查询标的最近一次定价记录。
func (q *PricingQueryService) GetLatest(ctx context.Context, symbol string) (*domain.PricingRecord, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", domain.ErrInvalidParameter)
	}
	return q.repo.GetLatest(ctx, symbol)
}

// GetHistory 查询定价历史，按时间倒序。
func (q *PricingQueryService) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", domain.ErrInvalidParameter)
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return q.repo.GetHistory(ctx, symbol, limit)
}

// GetGreeks 即时计算希腊字母，不落库。
func (q *PricingQueryService) GetGreeks(ctx context.Context, cmd PriceOptionCommand) (*domain.GreeksResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cmd.SpotPrice <= 0 && q.marketData != nil {
		price, err := q.marketData.GetPrice(ctx, cmd.Symbol)
		if err != nil {
			return nil, fmt.Errorf("fetch spot for %s: %w", cmd.Symbol, err)
		}
		cmd.SpotPrice = price.InexactFloat64()
	}
	contract, err := cmd.toContract()
	if err != nil {
		return nil, err
	}
	return q.engine.Greeks(contract)
}

// CrossCheckGreeks 解析与差分希腊字母的一致性诊断，返回最大相对偏差。
func (q *PricingQueryService) CrossCheckGreeks(ctx context.Context, cmd PriceOptionCommand) (float64, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	contract, err := cmd.toContract()
	if err != nil {
		return 0, err
	}
	return q.engine.CrossCheck(contract)
}
