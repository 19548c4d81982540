package domain

import (
	"fmt"
	"math"
)

// ImpliedVolatilitySolver 隐含波动率求解器。
// 主算法为解析 vega 的牛顿迭代，失败时退化到区间保证收敛的 Brent 法。
type ImpliedVolatilitySolver struct {
	bs *BlackScholesModel
	// 收敛判据 |price(sigma)-marketPrice| < Tolerance。
	Tolerance     float64
	MaxIterations int
	// 波动率搜索区间，默认 [1e-6, 5]。
	LowerBound float64
	UpperBound float64
}

const (
	defaultIVTolerance  = 1e-8
	defaultIVMaxIter    = 100
	defaultIVLowerBound = 1e-6
	defaultIVUpperBound = 5.0
	// 牛顿迭代的 vega 下限，低于该值斜率信息不可靠。
	minNewtonVega = 1e-10
)

// NewImpliedVolatilitySolver 创建求解器，参数取默认值。
func NewImpliedVolatilitySolver(bs *BlackScholesModel) *ImpliedVolatilitySolver {
	return &ImpliedVolatilitySolver{
		bs:            bs,
		Tolerance:     defaultIVTolerance,
		MaxIterations: defaultIVMaxIter,
		LowerBound:    defaultIVLowerBound,
		UpperBound:    defaultIVUpperBound,
	}
}

// Solve 从市场价格反推隐含波动率。入参合约的 Volatility 字段被忽略。
// 市场价格必须落在无套利区间内，否则不存在解，直接拒绝。
func (s *ImpliedVolatilitySolver) Solve(c ContractSpec, marketPrice float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Style != StyleEuropean {
		return 0, fmt.Errorf("implied volatility requested for %s contract: %w", c.Style, ErrUnsupportedStyle)
	}
	if c.TimeToExpiry == 0 {
		return 0, fmt.Errorf("implied volatility undefined at expiry: %w", ErrInvalidParameter)
	}
	if !isFinite(marketPrice) || marketPrice <= 0 {
		return 0, fmt.Errorf("market price must be positive and finite, got %v: %w", marketPrice, ErrInvalidParameter)
	}

	lower := c.ForwardIntrinsicValue()
	var upper float64
	if c.Type == OptionTypeCall {
		upper = c.Spot * math.Exp(-c.DividendYield*c.TimeToExpiry)
	} else {
		upper = c.Strike * math.Exp(-c.Rate*c.TimeToExpiry)
	}
	if marketPrice < lower || marketPrice > upper {
		return 0, fmt.Errorf("market price %v outside no-arbitrage bounds [%v, %v]: %w",
			marketPrice, lower, upper, ErrArbitrageViolation)
	}

	if sigma, ok := s.newton(c, marketPrice); ok {
		return sigma, nil
	}
	return s.brent(c, marketPrice)
}

// newton 牛顿迭代。初值采用 Brenner-Subrahmanyam 近似。
func (s *ImpliedVolatilitySolver) newton(c ContractSpec, marketPrice float64) (float64, bool) {
	sigma := math.Sqrt(2*math.Pi/c.TimeToExpiry) * marketPrice / c.Spot
	sigma = math.Min(math.Max(sigma, s.LowerBound), s.UpperBound)

	for i := 0; i < s.MaxIterations; i++ {
		spec, err := c.WithVolatility(sigma)
		if err != nil {
			return 0, false
		}
		res, err := s.bs.Price(spec)
		if err != nil {
			return 0, false
		}
		diff := res.Price - marketPrice
		if math.Abs(diff) < s.Tolerance {
			return sigma, true
		}
		vega := s.bs.Vega(spec)
		if vega < minNewtonVega {
			return 0, false
		}
		sigma -= diff / vega
		if !isFinite(sigma) || sigma < s.LowerBound || sigma > s.UpperBound {
			return 0, false
		}
	}
	return 0, false
}

// brent 在有界区间上的 Brent 法，逆二次插值、割线与二分交替。
// 无套利前置校验保证区间内存在根。
func (s *ImpliedVolatilitySolver) brent(c ContractSpec, marketPrice float64) (float64, error) {
	f := func(sigma float64) (float64, error) {
		spec, err := c.WithVolatility(sigma)
		if err != nil {
			return 0, err
		}
		res, err := s.bs.Price(spec)
		if err != nil {
			return 0, err
		}
		return res.Price - marketPrice, nil
	}

	a, b := s.LowerBound, s.UpperBound
	fa, err := f(a)
	if err != nil {
		return 0, err
	}
	fb, err := f(b)
	if err != nil {
		return 0, err
	}
	if fa*fb > 0 {
		return 0, fmt.Errorf("volatility interval [%v, %v] does not bracket market price %v: %w",
			a, b, marketPrice, ErrConvergence)
	}
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}

	cPoint, fc := a, fa
	var d float64
	mflag := true
	for i := 0; i < s.MaxIterations; i++ {
		if math.Abs(fb) < s.Tolerance {
			return b, nil
		}
		var next float64
		if fa != fc && fb != fc {
			// 逆二次插值
			next = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				cPoint*fa*fb/((fc-fa)*(fc-fb))
		} else {
			// 割线
			next = b - fb*(b-a)/(fb-fa)
		}

		lo, hi := (3*a+b)/4, b
		if lo > hi {
			lo, hi = hi, lo
		}
		bisect := next < lo || next > hi ||
			(mflag && math.Abs(next-b) >= math.Abs(b-cPoint)/2) ||
			(!mflag && math.Abs(next-b) >= math.Abs(cPoint-d)/2)
		if bisect {
			next = (a + b) / 2
			mflag = true
		} else {
			mflag = false
		}

		fNext, err := f(next)
		if err != nil {
			return 0, err
		}
		d = cPoint
		cPoint, fc = b, fb
		if fa*fNext < 0 {
			b, fb = next, fNext
		} else {
			a, fa = next, fNext
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}
	return 0, fmt.Errorf("implied volatility did not converge within %d iterations for market price %v: %w",
		s.MaxIterations, marketPrice, ErrConvergence)
}
