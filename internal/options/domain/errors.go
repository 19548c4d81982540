package domain

import (
	"github.com/wyfcoding/pkg/xerrors"
)

var (
	// ErrInvalidParameter 合约参数或计算参数非法。
	ErrInvalidParameter = xerrors.New(xerrors.ErrInvalidArg, 420001, "invalid parameter", "contract or calculation parameters are malformed", nil)
	// ErrUnsupportedStyle 定价方法与行权方式不匹配（例如用 Black-Scholes 为美式期权定价）。
	ErrUnsupportedStyle = xerrors.New(xerrors.ErrInvalidArg, 420002, "unsupported exercise style", "the requested model does not support this exercise style", nil)
	// ErrArbitrageViolation 风险中性概率失真或市场价格越出无套利边界。
	ErrArbitrageViolation = xerrors.New(xerrors.ErrInvalidArg, 420003, "arbitrage violation", "risk-neutral probability or market price breaches no-arbitrage bounds", nil)
	// ErrConvergence 迭代求解器在预算内未收敛。
	ErrConvergence = xerrors.New(xerrors.ErrInternal, 520001, "solver did not converge", "both primary and fallback root finders exhausted their budgets", nil)
	// ErrNumericalInstability 中间计算出现非有限值，直接上抛，绝不静默归零。
	ErrNumericalInstability = xerrors.New(xerrors.ErrInternal, 520002, "numerical instability", "a non-finite intermediate value was produced", nil)
	// ErrBumpOutOfRange 差分扰动会使合约参数越界（例如 T-δ < 0）。
	ErrBumpOutOfRange = xerrors.New(xerrors.ErrInvalidArg, 420004, "bump out of range", "a finite-difference bump would violate contract invariants", nil)
)
