package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/optionspricing/internal/options/domain"
	"github.com/wyfcoding/pkg/contextx"
)

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建并返回一个新的 pricingRepository 实例。
func NewPricingRepository(db *gorm.DB) domain.PricingRepository {
	return &pricingRepository{db: db}
}

// WithTx 在本地事务中执行 fn，事务对象随 context 下传。
func (r *pricingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txCtx := contextx.WithTx(ctx, tx)
		return fn(txCtx)
	})
}

// Save 保存定价记录，新记录插入，已有记录按 ID 更新。
func (r *pricingRepository) Save(ctx context.Context, rec *domain.PricingRecord) error {
	model := toPricingRecordModel(rec)
	if model == nil {
		return nil
	}
	db := r.getDB(ctx).WithContext(ctx)
	if model.ID == 0 {
		if err := db.Create(model).Error; err != nil {
			return err
		}
		rec.ID = model.ID
		rec.CreatedAt = model.CreatedAt
		rec.UpdatedAt = model.UpdatedAt
		return nil
	}
	return db.Model(&PricingRecordModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"symbol":         model.Symbol,
			"option_type":    model.OptionType,
			"exercise_style": model.ExerciseStyle,
			"strike_price":   model.StrikePrice,
			"spot_price":     model.SpotPrice,
			"time_to_expiry": model.TimeToExpiry,
			"risk_free_rate": model.RiskFreeRate,
			"volatility":     model.Volatility,
			"dividend_yield": model.DividendYield,
			"option_price":   model.OptionPrice,
			"std_error":      model.StdError,
			"method":         model.Method,
			"delta":          model.Delta,
			"gamma":          model.Gamma,
			"vega":           model.Vega,
			"theta":          model.Theta,
			"rho":            model.Rho,
			"calculated_at":  model.CalculatedAt,
			"updated_at":     time.Now(),
		}).Error
}

// GetLatest 查询标的最近一次定价记录，无记录时返回 nil。
func (r *pricingRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingRecord, error) {
	var m PricingRecordModel
	err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toPricingRecord(&m), nil
}

// GetHistory 查询定价历史，按计算时间倒序。
func (r *pricingRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	var models []PricingRecordModel
	if err := r.getDB(ctx).WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	records := make([]*domain.PricingRecord, len(models))
	for i := range models {
		records[i] = toPricingRecord(&models[i])
	}
	return records, nil
}

// SaveImpliedVol 保存隐含波动率求解记录。
func (r *pricingRepository) SaveImpliedVol(ctx context.Context, rec *domain.ImpliedVolRecord) error {
	model := toImpliedVolSolveModel(rec)
	if model == nil {
		return nil
	}
	if err := r.getDB(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	return nil
}

// SaveStrategy 保存策略组合快照。
func (r *pricingRepository) SaveStrategy(ctx context.Context, rec *domain.StrategyRecord) error {
	model := toStrategySnapshotModel(rec)
	if model == nil {
		return nil
	}
	if err := r.getDB(ctx).WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	return nil
}

func (r *pricingRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok {
		return tx
	}
	return r.db
}

// CleanupOldRecords 按保留期清理历史记录
func (r *pricingRepository) CleanupOldRecords(ctx context.Context, retention time.Duration) error {
	cutoff := time.Now().Add(-retention)
	return r.getDB(ctx).WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&PricingRecordModel{}).Error
}
