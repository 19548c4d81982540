package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/optionspricing/internal/options/domain"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/messagequeue"
)

// PricingCommandService 处理定价相关的命令操作
// 使用 Outbox 在保存记录的同一事务内发布领域事件

type PricingCommandService struct {
	engine     *domain.PricingEngine
	repo       domain.PricingRepository
	publisher  messagequeue.EventPublisher
	marketData domain.MarketDataClient
	defaults   Defaults
}

// Defaults 命令未显式指定时使用的计算参数
type Defaults struct {
	LatticeSteps     int
	SimulationPaths  int
	BatchConcurrency int
}

// NewPricingCommandService 创建新的 PricingCommandService 实例
func NewPricingCommandService(engine *domain.PricingEngine, repo domain.PricingRepository, publisher messagequeue.EventPublisher, marketData domain.MarketDataClient) *PricingCommandService {
	return &PricingCommandService{
		engine:     engine,
		repo:       repo,
		publisher:  publisher,
		marketData: marketData,
		defaults: Defaults{
			LatticeSteps:     defaultLatticeSteps,
			SimulationPaths:  defaultSimulationPaths,
			BatchConcurrency: defaultBatchConcurrency,
		},
	}
}

// WithDefaults 覆盖缺省计算参数，零值字段保持原缺省。
func (c *PricingCommandService) WithDefaults(d Defaults) *PricingCommandService {
	if d.LatticeSteps > 0 {
		c.defaults.LatticeSteps = d.LatticeSteps
	}
	if d.SimulationPaths > 0 {
		c.defaults.SimulationPaths = d.SimulationPaths
	}
	if d.BatchConcurrency > 0 {
		c.defaults.BatchConcurrency = d.BatchConcurrency
	}
	return c
}

// resolveSpot 命令未携带现价时向行情服务取数。
func (c *PricingCommandService) resolveSpot(ctx context.Context, cmd *PriceOptionCommand) error {
	if cmd.SpotPrice > 0 || c.marketData == nil {
		return nil
	}
	price, err := c.marketData.GetPrice(ctx, cmd.Symbol)
	if err != nil {
		return fmt.Errorf("fetch spot for %s: %w", cmd.Symbol, err)
	}
	cmd.SpotPrice = price.InexactFloat64()
	return nil
}

// PriceOption 期权定价，按命令指定或默认的方法分派。
func (c *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingRecord, error) {
	if cmd.Symbol == "" {
		return nil, fmt.Errorf("symbol is required: %w", domain.ErrInvalidParameter)
	}
	if err := c.resolveSpot(ctx, &cmd); err != nil {
		return nil, err
	}
	contract, err := cmd.toContract()
	if err != nil {
		return nil, err
	}

	result, greeks, err := c.priceByMethod(ctx, contract, cmd)
	if err != nil {
		return nil, err
	}

	record := domain.NewPricingRecord(cmd.Symbol, contract, result, greeks)
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.Save(txCtx, record); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		tx := contextx.GetTx(txCtx)

		priced := domain.OptionPricedEvent{
			Symbol:        cmd.Symbol,
			OptionType:    contract.Type,
			StrikePrice:   contract.Strike,
			SpotPrice:     contract.Spot,
			TimeToExpiry:  contract.TimeToExpiry,
			Volatility:    contract.Volatility,
			RiskFreeRate:  contract.Rate,
			DividendYield: contract.DividendYield,
			OptionPrice:   result.Price,
			StdError:      result.StdError,
			Method:        result.Method,
			CalculatedAt:  record.CalculatedAt,
			OccurredOn:    time.Now(),
		}
		if err := c.publisher.PublishInTx(txCtx, tx, domain.OptionPricedEventType, cmd.Symbol, priced); err != nil {
			return err
		}
		if greeks == nil {
			return nil
		}
		calculated := domain.GreeksCalculatedEvent{
			Symbol:       cmd.Symbol,
			OptionType:   contract.Type,
			StrikePrice:  contract.Strike,
			SpotPrice:    contract.Spot,
			Delta:        greeks.Delta,
			Gamma:        greeks.Gamma,
			Vega:         greeks.Vega,
			Theta:        greeks.Theta,
			Rho:          greeks.Rho,
			CalculatedAt: record.CalculatedAt,
			OccurredOn:   time.Now(),
		}
		return c.publisher.PublishInTx(txCtx, tx, domain.GreeksCalculatedEventType, cmd.Symbol, calculated)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// priceByMethod 按命令分派定价方法。模拟定价不产出希腊字母。
func (c *PricingCommandService) priceByMethod(ctx context.Context, contract domain.ContractSpec, cmd PriceOptionCommand) (*domain.PricingResult, *domain.GreeksResult, error) {
	switch domain.Method(strings.ToUpper(cmd.Method)) {
	case domain.MethodLattice:
		steps := cmd.LatticeSteps
		if steps <= 0 {
			steps = c.defaults.LatticeSteps
		}
		result, err := c.engine.PriceLattice(contract, steps)
		if err != nil {
			return nil, nil, err
		}
		greeks, err := c.engine.Greeks(contract)
		if err != nil {
			return nil, nil, err
		}
		return result, greeks, nil

	case domain.MethodSimulation:
		cfg := domain.SimulationConfig{
			Paths:        cmd.SimulationPaths,
			StepsPerPath: cmd.StepsPerPath,
			Seed:         cmd.Seed,
			Antithetic:   cmd.Antithetic,
		}
		if cfg.Paths <= 0 {
			cfg.Paths = c.defaults.SimulationPaths
		}
		if cfg.StepsPerPath <= 0 {
			cfg.StepsPerPath = 1
		}
		payoff, pathDependent, err := buildPayoff(contract, cmd)
		if err != nil {
			return nil, nil, err
		}
		if pathDependent {
			// 路径依赖收益需要足够的监控频率。
			cfg.StepsPerPath = max(cfg.StepsPerPath, 12)
		}
		result, err := c.engine.PriceMonteCarlo(ctx, contract, cfg, payoff)
		if err != nil {
			return nil, nil, err
		}
		return result, nil, nil

	case "", domain.MethodAnalytic:
		result, err := c.engine.Price(contract)
		if err != nil {
			return nil, nil, err
		}
		greeks, err := c.engine.Greeks(contract)
		if err != nil {
			return nil, nil, err
		}
		return result, greeks, nil

	default:
		return nil, nil, fmt.Errorf("unknown pricing method %q: %w", cmd.Method, domain.ErrInvalidParameter)
	}
}

// buildPayoff 将命令的收益类型映射为收益函数，并报告是否路径依赖。
// 返回 nil 收益时由引擎按欧式收益处理。
func buildPayoff(contract domain.ContractSpec, cmd PriceOptionCommand) (domain.PayoffFunc, bool, error) {
	switch strings.ToUpper(cmd.Payoff) {
	case "", "EUROPEAN":
		return nil, false, nil
	case "ASIAN", "ARITHMETIC_ASIAN":
		return domain.AsianPayoff(contract.Type, contract.Strike), true, nil
	case "GEOMETRIC_ASIAN":
		return domain.GeometricAsianPayoff(contract.Type, contract.Strike), true, nil
	case string(domain.BarrierUpAndOut), string(domain.BarrierDownAndOut),
		string(domain.BarrierUpAndIn), string(domain.BarrierDownAndIn):
		payoff, err := domain.BarrierPayoff(contract.Type, contract.Strike,
			domain.BarrierType(strings.ToUpper(cmd.Payoff)), cmd.Barrier)
		if err != nil {
			return nil, false, err
		}
		return payoff, true, nil
	default:
		return nil, false, fmt.Errorf("unknown payoff %q: %w", cmd.Payoff, domain.ErrInvalidParameter)
	}
}

// SolveImpliedVolatility 从市场价格求解隐含波动率。
func (c *PricingCommandService) SolveImpliedVolatility(ctx context.Context, cmd SolveImpliedVolCommand) (float64, error) {
	typ, err := parseOptionType(cmd.OptionType)
	if err != nil {
		return 0, err
	}
	spot := cmd.SpotPrice
	if spot <= 0 && c.marketData != nil {
		price, err := c.marketData.GetPrice(ctx, cmd.Symbol)
		if err != nil {
			return 0, fmt.Errorf("fetch spot for %s: %w", cmd.Symbol, err)
		}
		spot = price.InexactFloat64()
	}
	contract, err := domain.NewContractSpec(spot, cmd.StrikePrice, cmd.TimeToExpiry,
		cmd.RiskFreeRate, 0, cmd.DividendYield, typ, domain.StyleEuropean)
	if err != nil {
		return 0, err
	}

	sigma, err := c.engine.ImpliedVolatility(contract, cmd.MarketPrice)
	if err != nil {
		return 0, err
	}

	record := domain.NewImpliedVolRecord(cmd.Symbol, contract, cmd.MarketPrice, sigma)
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SaveImpliedVol(txCtx, record); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		return c.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ImpliedVolatilitySolvedEventType, cmd.Symbol, domain.ImpliedVolatilitySolvedEvent{
			Symbol:            cmd.Symbol,
			OptionType:        typ,
			StrikePrice:       cmd.StrikePrice,
			MarketPrice:       cmd.MarketPrice,
			ImpliedVolatility: sigma,
			SolvedAt:          record.SolvedAt,
			OccurredOn:        time.Now(),
		})
	})
	if err != nil {
		return 0, err
	}
	return sigma, nil
}

// ComposeStrategy 组合多腿策略并计算盈亏平衡点。
func (c *PricingCommandService) ComposeStrategy(ctx context.Context, cmd ComposeStrategyCommand) (*StrategyResult, error) {
	if cmd.Preset == "" && len(cmd.Legs) == 0 {
		return nil, fmt.Errorf("strategy needs at least one leg: %w", domain.ErrInvalidParameter)
	}
	spot := cmd.SpotPrice
	if spot <= 0 && c.marketData != nil {
		price, err := c.marketData.GetPrice(ctx, cmd.Symbol)
		if err != nil {
			return nil, fmt.Errorf("fetch spot for %s: %w", cmd.Symbol, err)
		}
		spot = price.InexactFloat64()
	}
	cmd.SpotPrice = spot

	var legs []domain.StrategyLeg
	if cmd.Preset != "" {
		built, err := cmd.presetLegs()
		if err != nil {
			return nil, err
		}
		legs = built
	} else {
		legs = make([]domain.StrategyLeg, 0, len(cmd.Legs))
		for i, in := range cmd.Legs {
			typ, err := parseOptionType(in.OptionType)
			if err != nil {
				return nil, fmt.Errorf("leg %d: %w", i, err)
			}
			style, err := parseExerciseStyle(in.ExerciseStyle)
			if err != nil {
				return nil, fmt.Errorf("leg %d: %w", i, err)
			}
			contract, err := domain.NewContractSpec(spot, in.StrikePrice, in.TimeToExpiry,
				cmd.RiskFreeRate, in.Volatility, in.DividendYield, typ, style)
			if err != nil {
				return nil, fmt.Errorf("leg %d: %w", i, err)
			}
			legs = append(legs, domain.StrategyLeg{Contract: contract, Quantity: in.Quantity})
		}
	}

	pos, err := c.engine.ComposeStrategy(legs)
	if err != nil {
		return nil, err
	}

	low, high := cmd.RangeLow, cmd.RangeHigh
	if low <= 0 || high <= low {
		low, high = 0.2*spot, 3*spot
	}
	breakevens, err := pos.Breakevens(low, high)
	if err != nil {
		return nil, err
	}
	maxProfit, maxLoss, err := pos.MaxProfitLoss(low, high)
	if err != nil {
		return nil, err
	}

	record := domain.NewStrategyRecord(cmd.Symbol, strings.ToUpper(cmd.Preset), pos, breakevens, maxProfit, maxLoss)
	err = c.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := c.repo.SaveStrategy(txCtx, record); err != nil {
			return err
		}
		if c.publisher == nil {
			return nil
		}
		return c.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.StrategyComposedEventType, cmd.Symbol, domain.StrategyComposedEvent{
			Symbol:     cmd.Symbol,
			LegCount:   len(legs),
			NetPremium: pos.NetPremium,
			Delta:      pos.Greeks.Delta,
			ComposedAt: record.ComposedAt,
			OccurredOn: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &StrategyResult{
		Symbol:     cmd.Symbol,
		LegPrices:  pos.LegPrices,
		NetPremium: pos.NetPremium,
		Greeks:     pos.Greeks,
		Breakevens: breakevens,
		MaxProfit:  finitePtr(maxProfit),
		MaxLoss:    finitePtr(maxLoss),
	}, nil
}

const (
	defaultLatticeSteps     = 500
	defaultSimulationPaths  = 100000
	defaultBatchConcurrency = 8
)

// BatchPriceOptions 批量定价。各合约相互独立，按并发度并行计算。
// 单个合约失败不影响其余合约，失败计数在结果中给出。
func (c *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	concurrency := cmd.Concurrency
	if concurrency <= 0 {
		concurrency = c.defaults.BatchConcurrency
	}

	var (
		mu      sync.Mutex
		results = make([]*domain.PricingRecord, 0, len(cmd.Contracts))
		failed  int
	)
	start := time.Now()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, contract := range cmd.Contracts {
		g.Go(func() error {
			record, err := c.PriceOption(gCtx, contract)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return nil
			}
			results = append(results, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	avg := 0.0
	if len(cmd.Contracts) > 0 {
		avg = time.Since(start).Seconds() / float64(len(cmd.Contracts))
	}
	if c.publisher != nil {
		_ = c.publisher.Publish(ctx, domain.BatchPricingCompletedEventType, cmd.BatchID, domain.BatchPricingCompletedEvent{
			BatchID:     cmd.BatchID,
			Total:       len(cmd.Contracts),
			Succeeded:   len(results),
			Failed:      failed,
			CompletedAt: time.Now().Unix(),
			OccurredOn:  time.Now(),
		})
	}
	return &BatchPricingResult{
		BatchID:      cmd.BatchID,
		Results:      results,
		SuccessCount: len(results),
		FailureCount: failed,
		AverageTime:  avg,
	}, nil
}
