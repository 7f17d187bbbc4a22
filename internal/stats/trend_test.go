package stats_test

import (
	"math"
	"testing"

	"github.com/promptgauge/promptgauge/internal/stats"
)

func TestCalculateTrendIncreasing(t *testing.T) {
	trend := stats.CalculateTrend([]float64{1.0, 1.2, 1.5, 1.8, 2.0})

	if trend.Trend != stats.TrendIncreasing {
		t.Errorf("expected increasing, got %q", trend.Trend)
	}
	if trend.Direction != stats.DirectionUp {
		t.Errorf("expected direction up, got %q", trend.Direction)
	}
	if trend.StartValue != 1.0 || trend.EndValue != 2.0 {
		t.Errorf("expected start 1.0 end 2.0, got %g/%g", trend.StartValue, trend.EndValue)
	}
	if !almostEqual(trend.Change, 1.0) {
		t.Errorf("expected change 1.0, got %g", trend.Change)
	}
	if !almostEqual(trend.PctChange, 100.0) {
		t.Errorf("expected pct_change 100, got %g", trend.PctChange)
	}
	if trend.Slope <= 0 {
		t.Errorf("expected positive slope, got %g", trend.Slope)
	}
}

func TestCalculateTrendDecreasing(t *testing.T) {
	trend := stats.CalculateTrend([]float64{10, 8, 6, 4, 2})

	if trend.Trend != stats.TrendDecreasing {
		t.Errorf("expected decreasing, got %q", trend.Trend)
	}
	if trend.Direction != stats.DirectionDown {
		t.Errorf("expected direction down, got %q", trend.Direction)
	}
	if !almostEqual(trend.Slope, -2) {
		t.Errorf("expected slope -2, got %g", trend.Slope)
	}
	if !almostEqual(trend.PctChange, -80) {
		t.Errorf("expected pct_change -80, got %g", trend.PctChange)
	}
}

func TestCalculateTrendStable(t *testing.T) {
	trend := stats.CalculateTrend([]float64{5, 5.001, 5, 4.999, 5})

	if trend.Trend != stats.TrendStable {
		t.Errorf("expected stable, got %q", trend.Trend)
	}
	if trend.Direction != "" {
		t.Errorf("expected empty direction for stable, got %q", trend.Direction)
	}
}

func TestCalculateTrendInsufficientData(t *testing.T) {
	for _, values := range [][]float64{nil, {}, {3.5}} {
		trend := stats.CalculateTrend(values)
		if trend.Trend != stats.TrendInsufficientData {
			t.Errorf("len %d: expected insufficient_data, got %q", len(values), trend.Trend)
		}
		if trend.Direction != "" {
			t.Errorf("len %d: expected empty direction, got %q", len(values), trend.Direction)
		}
		if trend.Slope != 0 || trend.Change != 0 || trend.PctChange != 0 {
			t.Errorf("len %d: expected zero numeric fields, got %+v", len(values), trend)
		}
	}
}

func TestCalculateTrendZeroStart(t *testing.T) {
	trend := stats.CalculateTrend([]float64{0, 1, 2})

	if trend.PctChange != 0 {
		t.Errorf("expected pct_change 0 when start is 0, got %g", trend.PctChange)
	}
	if !almostEqual(trend.Change, 2) {
		t.Errorf("expected change 2, got %g", trend.Change)
	}
}

func TestCalculateTrendExactSlope(t *testing.T) {
	// Perfect line y = 3x + 1.
	trend := stats.CalculateTrend([]float64{1, 4, 7, 10})
	if math.Abs(trend.Slope-3) > 1e-9 {
		t.Errorf("expected slope 3, got %g", trend.Slope)
	}
}
