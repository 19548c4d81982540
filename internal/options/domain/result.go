package domain

// Method 计算方法
type Method string

const (
	MethodAnalytic   Method = "ANALYTIC"   // 闭式解
	MethodLattice    Method = "LATTICE"    // 二叉树
	MethodSimulation Method = "SIMULATION" // 蒙特卡洛
)

// PricingResult 单次定价结果。
// StdError 与置信区间仅在 SIMULATION 下有意义。
type PricingResult struct {
	Price    float64 `json:"price"`
	Method   Method  `json:"method"`
	StdError float64 `json:"std_error,omitempty"`
	ConfLow  float64 `json:"conf_low,omitempty"`
	ConfHigh float64 `json:"conf_high,omitempty"`
}

// GreeksResult 希腊字母。
// 约定：delta/gamma 为原始偏导；vega、rho 按每 1% 变动计（除以 100）；
// theta 为每日时间价值衰减（除以 365）。与解析式和差分式共用同一约定。
type GreeksResult struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Add 逐项相加，返回新值。
func (g GreeksResult) Add(other GreeksResult) GreeksResult {
	return GreeksResult{
		Delta: g.Delta + other.Delta,
		Gamma: g.Gamma + other.Gamma,
		Vega:  g.Vega + other.Vega,
		Theta: g.Theta + other.Theta,
		Rho:   g.Rho + other.Rho,
	}
}

// Scale 逐项乘以系数，返回新值。
func (g GreeksResult) Scale(factor float64) GreeksResult {
	return GreeksResult{
		Delta: g.Delta * factor,
		Gamma: g.Gamma * factor,
		Vega:  g.Vega * factor,
		Theta: g.Theta * factor,
		Rho:   g.Rho * factor,
	}
}
