package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionspricing/internal/options/domain"
)

type memoryRepo struct {
	mu         sync.Mutex
	records    []*domain.PricingRecord
	ivRecords  []*domain.ImpliedVolRecord
	strategies []*domain.StrategyRecord
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memoryRepo) Save(ctx context.Context, record *domain.PricingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = uint(len(m.records) + 1)
	m.records = append(m.records, record)
	return nil
}

func (m *memoryRepo) SaveImpliedVol(ctx context.Context, record *domain.ImpliedVolRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = uint(len(m.ivRecords) + 1)
	m.ivRecords = append(m.ivRecords, record)
	return nil
}

func (m *memoryRepo) SaveStrategy(ctx context.Context, record *domain.StrategyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = uint(len(m.strategies) + 1)
	m.strategies = append(m.strategies, record)
	return nil
}

func (m *memoryRepo) GetLatest(ctx context.Context, symbol string) (*domain.PricingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Symbol == symbol {
			return m.records[i], nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memoryRepo) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.PricingRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].Symbol == symbol {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *capturingPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturingPublisher) PublishInTx(ctx context.Context, tx any, topic, key string, event any) error {
	return p.Publish(ctx, topic, key, event)
}

func (p *capturingPublisher) seen(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type staticMarketData struct {
	price decimal.Decimal
}

func (m staticMarketData) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return m.price, nil
}

func (m staticMarketData) GetRiskFreeRate(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromFloat(0.05), nil
}

func newCommandService() (*PricingCommandService, *memoryRepo, *capturingPublisher) {
	repo := &memoryRepo{}
	pub := &capturingPublisher{}
	svc := NewPricingCommandService(domain.NewPricingEngine(), repo, pub, staticMarketData{price: decimal.NewFromInt(100)})
	return svc, repo, pub
}

func basePriceCommand() PriceOptionCommand {
	return PriceOptionCommand{
		Symbol:       "AAPL240621C100",
		OptionType:   "CALL",
		StrikePrice:  100,
		SpotPrice:    100,
		TimeToExpiry: 1,
		RiskFreeRate: 0.05,
		Volatility:   0.2,
	}
}

func TestPriceOptionAnalytic(t *testing.T) {
	svc, repo, pub := newCommandService()

	record, err := svc.PriceOption(context.Background(), basePriceCommand())
	if err != nil {
		t.Fatalf("PriceOption: %v", err)
	}
	if got := record.OptionPrice.InexactFloat64(); math.Abs(got-10.4506) > 1e-4 {
		t.Errorf("price = %v, want 10.4506", got)
	}
	if record.Method != domain.MethodAnalytic {
		t.Errorf("method = %s, want %s", record.Method, domain.MethodAnalytic)
	}
	if len(repo.records) != 1 {
		t.Errorf("saved records = %d, want 1", len(repo.records))
	}
	if !pub.seen(domain.OptionPricedEventType) || !pub.seen(domain.GreeksCalculatedEventType) {
		t.Errorf("missing events, published topics: %v", pub.topics)
	}
}

func TestPriceOptionResolvesSpotFromMarketData(t *testing.T) {
	svc, _, _ := newCommandService()

	cmd := basePriceCommand()
	cmd.SpotPrice = 0
	record, err := svc.PriceOption(context.Background(), cmd)
	if err != nil {
		t.Fatalf("PriceOption: %v", err)
	}
	if got := record.SpotPrice.InexactFloat64(); got != 100 {
		t.Errorf("spot = %v, want 100 from market data", got)
	}
}

func TestPriceOptionSimulationKeepsStdError(t *testing.T) {
	svc, _, _ := newCommandService()

	cmd := basePriceCommand()
	cmd.Method = "SIMULATION"
	cmd.SimulationPaths = 20000
	seed := uint64(9)
	cmd.Seed = &seed

	record, err := svc.PriceOption(context.Background(), cmd)
	if err != nil {
		t.Fatalf("PriceOption: %v", err)
	}
	if record.Method != domain.MethodSimulation {
		t.Errorf("method = %s, want %s", record.Method, domain.MethodSimulation)
	}
	if record.StdError.IsZero() {
		t.Errorf("simulation record lost standard error")
	}
}

func TestPriceOptionRejectsUnknownMethod(t *testing.T) {
	svc, _, _ := newCommandService()

	cmd := basePriceCommand()
	cmd.Method = "QUANTUM"
	if _, err := svc.PriceOption(context.Background(), cmd); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("error = %v, want ErrInvalidParameter", err)
	}

	cmd = basePriceCommand()
	cmd.Symbol = ""
	if _, err := svc.PriceOption(context.Background(), cmd); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("empty symbol error = %v, want ErrInvalidParameter", err)
	}
}

func TestSolveImpliedVolatilityCommand(t *testing.T) {
	svc, repo, pub := newCommandService()

	// 先用已知波动率生成市场价
	bs := domain.NewBlackScholesModel()
	contract, err := domain.NewContractSpec(100, 100, 1, 0.05, 0.25, 0, domain.OptionTypeCall, domain.StyleEuropean)
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	res, err := bs.Price(contract)
	if err != nil {
		t.Fatalf("price: %v", err)
	}

	sigma, err := svc.SolveImpliedVolatility(context.Background(), SolveImpliedVolCommand{
		Symbol:       "AAPL240621C100",
		OptionType:   "call",
		StrikePrice:  100,
		SpotPrice:    100,
		TimeToExpiry: 1,
		RiskFreeRate: 0.05,
		MarketPrice:  res.Price,
	})
	if err != nil {
		t.Fatalf("SolveImpliedVolatility: %v", err)
	}
	if math.Abs(sigma-0.25) > 1e-6 {
		t.Errorf("sigma = %v, want 0.25", sigma)
	}
	if !pub.seen(domain.ImpliedVolatilitySolvedEventType) {
		t.Errorf("missing solved event, topics: %v", pub.topics)
	}
	if len(repo.ivRecords) != 1 {
		t.Fatalf("saved solves = %d, want 1", len(repo.ivRecords))
	}
	if got := repo.ivRecords[0].ImpliedVolatility.InexactFloat64(); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("saved sigma = %v, want 0.25", got)
	}
}

func TestComposeStrategyCommand(t *testing.T) {
	svc, repo, pub := newCommandService()

	result, err := svc.ComposeStrategy(context.Background(), ComposeStrategyCommand{
		Symbol:       "AAPL",
		SpotPrice:    100,
		RiskFreeRate: 0.05,
		Legs: []StrategyLegInput{
			{OptionType: "CALL", StrikePrice: 100, TimeToExpiry: 1, Volatility: 0.2, Quantity: 1},
			{OptionType: "PUT", StrikePrice: 100, TimeToExpiry: 1, Volatility: 0.2, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("ComposeStrategy: %v", err)
	}
	if len(result.Breakevens) != 2 {
		t.Errorf("straddle breakevens = %v, want 2", result.Breakevens)
	}
	if result.NetPremium <= 0 {
		t.Errorf("net premium = %v, want > 0", result.NetPremium)
	}
	if !pub.seen(domain.StrategyComposedEventType) {
		t.Errorf("missing composed event, topics: %v", pub.topics)
	}
	// 多头跨式上行无界，最大收益以 nil 表示
	if result.MaxProfit != nil {
		t.Errorf("straddle max profit = %v, want unbounded", *result.MaxProfit)
	}
	if result.MaxLoss == nil {
		t.Errorf("straddle max loss should be bounded")
	}
	if len(repo.strategies) != 1 {
		t.Errorf("saved strategies = %d, want 1", len(repo.strategies))
	}
}

func TestComposeStrategyPreset(t *testing.T) {
	svc, repo, _ := newCommandService()

	result, err := svc.ComposeStrategy(context.Background(), ComposeStrategyCommand{
		Symbol:       "AAPL",
		SpotPrice:    100,
		RiskFreeRate: 0.05,
		Preset:       "bull_call_spread",
		Strikes:      []float64{95, 105},
		TimeToExpiry: 0.5,
		Volatility:   0.2,
	})
	if err != nil {
		t.Fatalf("ComposeStrategy: %v", err)
	}
	if len(result.LegPrices) != 2 {
		t.Fatalf("leg prices = %d, want 2", len(result.LegPrices))
	}
	// 牛市看涨价差两端收益皆有界
	if result.MaxProfit == nil || result.MaxLoss == nil {
		t.Fatalf("spread should have bounded profit and loss")
	}
	if *result.MaxProfit <= 0 || *result.MaxLoss >= 0 {
		t.Errorf("max profit/loss = %v/%v, want positive/negative", *result.MaxProfit, *result.MaxLoss)
	}
	if repo.strategies[0].Preset != "BULL_CALL_SPREAD" {
		t.Errorf("saved preset = %q", repo.strategies[0].Preset)
	}
}

func TestComposeStrategyPresetStrikeCount(t *testing.T) {
	svc, _, _ := newCommandService()

	_, err := svc.ComposeStrategy(context.Background(), ComposeStrategyCommand{
		Symbol:       "AAPL",
		SpotPrice:    100,
		RiskFreeRate: 0.05,
		Preset:       "IRON_CONDOR",
		Strikes:      []float64{90, 95},
		TimeToExpiry: 0.5,
		Volatility:   0.2,
	})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("error = %v, want ErrInvalidParameter", err)
	}
}

func TestPriceOptionBarrierPayoff(t *testing.T) {
	svc, _, _ := newCommandService()

	seed := uint64(7)
	vanilla := basePriceCommand()
	vanilla.Method = "SIMULATION"
	vanilla.SimulationPaths = 20000
	vanilla.StepsPerPath = 50
	vanilla.Seed = &seed

	knockOut := vanilla
	knockOut.Payoff = "UP_AND_OUT"
	knockOut.Barrier = 130

	vRec, err := svc.PriceOption(context.Background(), vanilla)
	if err != nil {
		t.Fatalf("vanilla: %v", err)
	}
	oRec, err := svc.PriceOption(context.Background(), knockOut)
	if err != nil {
		t.Fatalf("knock-out: %v", err)
	}
	if oRec.OptionPrice.InexactFloat64() >= vRec.OptionPrice.InexactFloat64() {
		t.Errorf("up-and-out call %v should be cheaper than vanilla %v",
			oRec.OptionPrice, vRec.OptionPrice)
	}
}

func TestPriceOptionRejectsUnknownPayoff(t *testing.T) {
	svc, _, _ := newCommandService()

	cmd := basePriceCommand()
	cmd.Method = "SIMULATION"
	cmd.Payoff = "LOOKBACK"
	if _, err := svc.PriceOption(context.Background(), cmd); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("error = %v, want ErrInvalidParameter", err)
	}
}

func TestBatchPriceOptionsIsolatesFailures(t *testing.T) {
	svc, repo, pub := newCommandService()

	good := basePriceCommand()
	bad := basePriceCommand()
	bad.StrikePrice = -1

	result, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		BatchID:   "batch-1",
		Contracts: []PriceOptionCommand{good, bad, good},
	})
	if err != nil {
		t.Fatalf("BatchPriceOptions: %v", err)
	}
	if result.SuccessCount != 2 || result.FailureCount != 1 {
		t.Errorf("success/failure = %d/%d, want 2/1", result.SuccessCount, result.FailureCount)
	}
	if len(repo.records) != 2 {
		t.Errorf("saved records = %d, want 2", len(repo.records))
	}
	if !pub.seen(domain.BatchPricingCompletedEventType) {
		t.Errorf("missing batch event, topics: %v", pub.topics)
	}
}
