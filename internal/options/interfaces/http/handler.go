package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wyfcoding/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionspricing/internal/options/application"
	"github.com/wyfcoding/optionspricing/pkg/logger"
	"github.com/wyfcoding/optionspricing/pkg/metrics"
)

// HTTP 处理器
// 负责处理与期权定价相关的 HTTP 请求
type PricingHandler struct {
	cmd     *application.PricingCommandService
	query   *application.PricingQueryService
	metrics *metrics.Metrics
}

// 创建 HTTP 处理器实例
func NewPricingHandler(cmd *application.PricingCommandService, query *application.PricingQueryService, m *metrics.Metrics) *PricingHandler {
	return &PricingHandler{cmd: cmd, query: query, metrics: m}
}

// 注册路由
// 将处理器方法绑定到 Gin 路由引擎
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.GetGreeks)
		api.POST("/option/implied-vol", h.SolveImpliedVolatility)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.POST("/strategy/compose", h.ComposeStrategy)
		api.GET("/option/latest/:symbol", h.GetLatest)
		api.GET("/option/history/:symbol", h.GetHistory)
	}
}

// ContractRequest 期权合约请求
type ContractRequest struct {
	Symbol        string  `json:"symbol" binding:"required"`
	Type          string  `json:"type" binding:"required"`
	Style         string  `json:"style"`
	StrikePrice   float64 `json:"strike_price" binding:"required"`
	SpotPrice     float64 `json:"spot_price"`
	TimeToExpiry  float64 `json:"time_to_expiry" binding:"required"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	Volatility    float64 `json:"volatility" binding:"required"`
	DividendYield float64 `json:"dividend_yield"`
}

// PricingRequest 定价请求
type PricingRequest struct {
	Contract ContractRequest `json:"contract" binding:"required"`

	Method          string  `json:"method"`
	LatticeSteps    int     `json:"lattice_steps"`
	SimulationPaths int     `json:"simulation_paths"`
	StepsPerPath    int     `json:"steps_per_path"`
	Seed            *uint64 `json:"seed"`
	Antithetic      bool    `json:"antithetic"`
	Payoff          string  `json:"payoff"`
	Barrier         float64 `json:"barrier"`
}

func (req *PricingRequest) toCommand() application.PriceOptionCommand {
	return application.PriceOptionCommand{
		Symbol:          req.Contract.Symbol,
		OptionType:      req.Contract.Type,
		ExerciseStyle:   req.Contract.Style,
		StrikePrice:     req.Contract.StrikePrice,
		SpotPrice:       req.Contract.SpotPrice,
		TimeToExpiry:    req.Contract.TimeToExpiry,
		RiskFreeRate:    req.Contract.RiskFreeRate,
		Volatility:      req.Contract.Volatility,
		DividendYield:   req.Contract.DividendYield,
		Method:          req.Method,
		LatticeSteps:    req.LatticeSteps,
		SimulationPaths: req.SimulationPaths,
		StepsPerPath:    req.StepsPerPath,
		Seed:            req.Seed,
		Antithetic:      req.Antithetic,
		Payoff:          req.Payoff,
		Barrier:         req.Barrier,
	}
}

// PriceOption 计算期权价格
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	start := time.Now()
	record, err := h.cmd.PriceOption(c.Request.Context(), req.toCommand())
	if err != nil {
		h.metrics.PricingErrorsTotal.WithLabelValues("price").Inc()
		logger.Error(c.Request.Context(), "failed to price option", "symbol", req.Contract.Symbol, "error", err)
		response.Error(c, err)
		return
	}
	h.metrics.PricingsTotal.WithLabelValues(string(record.Method)).Inc()
	h.metrics.PricingDuration.WithLabelValues(string(record.Method)).Observe(time.Since(start).Seconds())

	response.Success(c, record)
}

// GetGreeks 计算希腊字母
func (h *PricingHandler) GetGreeks(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	greeks, err := h.query.GetGreeks(c.Request.Context(), req.toCommand())
	if err != nil {
		h.metrics.PricingErrorsTotal.WithLabelValues("greeks").Inc()
		logger.Error(c.Request.Context(), "failed to calculate greeks", "symbol", req.Contract.Symbol, "error", err)
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"symbol": req.Contract.Symbol,
		"greeks": greeks,
	})
}

// ImpliedVolRequest 隐含波动率请求
type ImpliedVolRequest struct {
	Symbol        string  `json:"symbol" binding:"required"`
	Type          string  `json:"type" binding:"required"`
	StrikePrice   float64 `json:"strike_price" binding:"required"`
	SpotPrice     float64 `json:"spot_price"`
	TimeToExpiry  float64 `json:"time_to_expiry" binding:"required"`
	RiskFreeRate  float64 `json:"risk_free_rate"`
	DividendYield float64 `json:"dividend_yield"`
	MarketPrice   float64 `json:"market_price" binding:"required"`
}

// SolveImpliedVolatility 求解隐含波动率
func (h *PricingHandler) SolveImpliedVolatility(c *gin.Context) {
	var req ImpliedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	vol, err := h.cmd.SolveImpliedVolatility(c.Request.Context(), application.SolveImpliedVolCommand{
		Symbol:        req.Symbol,
		OptionType:    req.Type,
		StrikePrice:   req.StrikePrice,
		SpotPrice:     req.SpotPrice,
		TimeToExpiry:  req.TimeToExpiry,
		RiskFreeRate:  req.RiskFreeRate,
		DividendYield: req.DividendYield,
		MarketPrice:   req.MarketPrice,
	})
	if err != nil {
		h.metrics.PricingErrorsTotal.WithLabelValues("implied_vol").Inc()
		logger.Error(c.Request.Context(), "failed to solve implied volatility", "symbol", req.Symbol, "error", err)
		response.Error(c, err)
		return
	}
	h.metrics.ImpliedVolSolvesTotal.Inc()

	response.Success(c, gin.H{
		"symbol":             req.Symbol,
		"implied_volatility": vol,
	})
}

// StrategyLegRequest 策略腿请求
type StrategyLegRequest struct {
	Type          string  `json:"type" binding:"required"`
	Style         string  `json:"style"`
	StrikePrice   float64 `json:"strike_price" binding:"required"`
	TimeToExpiry  float64 `json:"time_to_expiry" binding:"required"`
	Volatility    float64 `json:"volatility" binding:"required"`
	DividendYield float64 `json:"dividend_yield"`
	Quantity      float64 `json:"quantity" binding:"required"`
}

// StrategyRequest 组合策略请求。预置策略与显式腿二选一。
type StrategyRequest struct {
	Symbol       string               `json:"symbol" binding:"required"`
	SpotPrice    float64              `json:"spot_price"`
	RiskFreeRate float64              `json:"risk_free_rate"`
	Legs         []StrategyLegRequest `json:"legs"`

	Preset        string    `json:"preset"`
	Strikes       []float64 `json:"strikes"`
	TimeToExpiry  float64   `json:"time_to_expiry"`
	Volatility    float64   `json:"volatility"`
	DividendYield float64   `json:"dividend_yield"`

	RangeLow  float64 `json:"range_low"`
	RangeHigh float64 `json:"range_high"`
}

// ComposeStrategy 组合多腿策略并计算净权利金、盈亏平衡点
func (h *PricingHandler) ComposeStrategy(c *gin.Context) {
	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.ComposeStrategyCommand{
		Symbol:        req.Symbol,
		SpotPrice:     req.SpotPrice,
		RiskFreeRate:  req.RiskFreeRate,
		Preset:        req.Preset,
		Strikes:       req.Strikes,
		TimeToExpiry:  req.TimeToExpiry,
		Volatility:    req.Volatility,
		DividendYield: req.DividendYield,
		RangeLow:      req.RangeLow,
		RangeHigh:     req.RangeHigh,
	}
	for _, leg := range req.Legs {
		cmd.Legs = append(cmd.Legs, application.StrategyLegInput{
			OptionType:    leg.Type,
			ExerciseStyle: leg.Style,
			StrikePrice:   leg.StrikePrice,
			TimeToExpiry:  leg.TimeToExpiry,
			Volatility:    leg.Volatility,
			DividendYield: leg.DividendYield,
			Quantity:      leg.Quantity,
		})
	}

	result, err := h.cmd.ComposeStrategy(c.Request.Context(), cmd)
	if err != nil {
		h.metrics.PricingErrorsTotal.WithLabelValues("strategy").Inc()
		logger.Error(c.Request.Context(), "failed to compose strategy", "symbol", req.Symbol, "error", err)
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// BatchRequest 批量定价请求
type BatchRequest struct {
	BatchID     string           `json:"batch_id"`
	Contracts   []PricingRequest `json:"contracts" binding:"required"`
	Concurrency int              `json:"concurrency"`
}

// BatchPriceOptions 批量定价
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.BatchPriceOptionsCommand{
		BatchID:     req.BatchID,
		Concurrency: req.Concurrency,
	}
	for _, contract := range req.Contracts {
		cmd.Contracts = append(cmd.Contracts, contract.toCommand())
	}

	result, err := h.cmd.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to batch price options", "batch_id", req.BatchID, "error", err)
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetLatest 查询最近一次定价记录
func (h *PricingHandler) GetLatest(c *gin.Context) {
	symbol := c.Param("symbol")

	record, err := h.query.GetLatest(c.Request.Context(), symbol)
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "no pricing record for "+symbol, "")
		return
	}

	response.Success(c, record)
}

// GetHistory 查询历史定价记录
func (h *PricingHandler) GetHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	records, err := h.query.GetHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, records)
}
