package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionspricing/internal/options/domain"
	"github.com/wyfcoding/optionspricing/pkg/utils"
)

// HTTPMarketDataClient 基于 HTTP 的市场数据服务客户端实现
type HTTPMarketDataClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPMarketDataClient 创建市场数据服务客户端
func NewHTTPMarketDataClient(baseURL string, timeout time.Duration) domain.MarketDataClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPMarketDataClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"last_price"`
}

type rateResponse struct {
	Rate string `json:"rate"`
}

// GetPrice 获取最新价格
func (c *HTTPMarketDataClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var resp quoteResponse
	endpoint := fmt.Sprintf("%s/api/v1/quotes/%s", c.baseURL, url.PathEscape(symbol))
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(resp.LastPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quote price for %s: %w", symbol, err)
	}
	return price, nil
}

// GetRiskFreeRate 获取无风险利率
func (c *HTTPMarketDataClient) GetRiskFreeRate(ctx context.Context) (decimal.Decimal, error) {
	var resp rateResponse
	endpoint := fmt.Sprintf("%s/api/v1/rates/risk-free", c.baseURL)
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get risk free rate: %w", err)
	}
	rate, err := decimal.NewFromString(resp.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid risk free rate: %w", err)
	}
	return rate, nil
}

// getJSON 带指数退避重试的 GET 请求
func (c *HTTPMarketDataClient) getJSON(ctx context.Context, endpoint string, out any) error {
	return utils.RetryWithBackoff(ctx, 3, 100*time.Millisecond, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// MockMarketDataClient 模拟市场数据客户端
type MockMarketDataClient struct {
	basePrice float64
	rate      decimal.Decimal
}

func NewMockMarketDataClient() domain.MarketDataClient {
	return &MockMarketDataClient{
		basePrice: 100.0,
		rate:      decimal.NewFromFloat(0.05),
	}
}

func (c *MockMarketDataClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	// 模拟围绕基准价的随机波动
	price := c.basePrice + (rand.Float64()-0.5)*10
	return decimal.NewFromFloat(price), nil
}

func (c *MockMarketDataClient) GetRiskFreeRate(ctx context.Context) (decimal.Decimal, error) {
	return c.rate, nil
}
