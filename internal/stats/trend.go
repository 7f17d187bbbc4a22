package stats

// Trend classification labels.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"

	DirectionUp   = "up"
	DirectionDown = "down"
)

// slopeThreshold separates a stable series from a moving one.
const slopeThreshold = 0.01

// Trend describes the linear tendency of a value series over observation
// order.
type Trend struct {
	Trend      string  `json:"trend"`
	Direction  string  `json:"direction,omitempty"`
	Slope      float64 `json:"slope"`
	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`
	Change     float64 `json:"change"`
	PctChange  float64 `json:"pct_change"`
}

// CalculateTrend fits an ordinary-least-squares line to (index, value) points
// and classifies the slope. Fewer than two values cannot form a trend.
func CalculateTrend(values []float64) Trend {
	if len(values) < 2 {
		return Trend{Trend: TrendInsufficientData}
	}

	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)

	start := values[0]
	end := values[len(values)-1]
	change := end - start
	pctChange := 0.0
	if start != 0 {
		pctChange = change / start * 100
	}

	result := Trend{
		Slope:      slope,
		StartValue: start,
		EndValue:   end,
		Change:     change,
		PctChange:  pctChange,
	}

	switch {
	case slope > slopeThreshold:
		result.Trend = TrendIncreasing
		result.Direction = DirectionUp
	case slope < -slopeThreshold:
		result.Trend = TrendDecreasing
		result.Direction = DirectionDown
	default:
		result.Trend = TrendStable
	}
	return result
}
