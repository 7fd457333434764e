package model

const (
	YieldMethodUnavailable     = "unavailable"
	YieldMethodConstantProduct = "constant_product_volume"
	YieldMethodConcentrated    = "concentrated_volume"
)

// YieldEstimate is a heuristic APY for a position.
type YieldEstimate struct {
	APY          float64    `json:"apy"`
	DailyFeesUSD float64    `json:"daily_fees_usd"`
	Method       string     `json:"method"`
	Confidence   Confidence `json:"confidence"`
}

// UnavailableYield is returned when a position cannot be priced.
func UnavailableYield() YieldEstimate {
	return YieldEstimate{Method: YieldMethodUnavailable, Confidence: ConfidenceLow}
}
