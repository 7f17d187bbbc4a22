package stats_test

import (
	"errors"
	"testing"

	"github.com/promptgauge/promptgauge/internal/stats"
)

func TestDetectOutliersIQR(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 5, 1, 1, 1}

	indices, err := stats.DetectOutliers(values, stats.MethodIQR, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indices) != 1 || indices[0] != 5 {
		t.Errorf("expected outlier at index 5, got %v", indices)
	}
}

func TestDetectOutliersZScore(t *testing.T) {
	values := []float64{10, 11, 9, 10, 10, 100}

	indices, err := stats.DetectOutliers(values, stats.MethodZScore, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indices) != 1 || indices[0] != 5 {
		t.Errorf("expected outlier at index 5, got %v", indices)
	}
}

func TestDetectOutliersConstantSeries(t *testing.T) {
	values := []float64{4, 4, 4, 4, 4}

	for _, method := range []string{stats.MethodIQR, stats.MethodZScore} {
		indices, err := stats.DetectOutliers(values, method, 1.5)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
		if len(indices) != 0 {
			t.Errorf("%s: expected no outliers on constant series, got %v", method, indices)
		}
	}
}

func TestDetectOutliersUnknownMethod(t *testing.T) {
	_, err := stats.DetectOutliers([]float64{1, 2, 3}, "mad", 1.5)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	if !errors.Is(err, stats.ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestDetectOutliersEmptyInput(t *testing.T) {
	indices, err := stats.DetectOutliers(nil, stats.MethodIQR, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indices) != 0 {
		t.Errorf("expected no outliers for empty input, got %v", indices)
	}
}

func TestDetectOutliersDefaultThreshold(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 5, 1, 1, 1}

	// A non-positive threshold falls back to 1.5.
	indices, err := stats.DetectOutliers(values, stats.MethodIQR, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indices) != 1 || indices[0] != 5 {
		t.Errorf("expected outlier at index 5 with default threshold, got %v", indices)
	}
}

func TestDetectOutliersIndicesAscending(t *testing.T) {
	values := []float64{100, 1, 1, 1, 1, 1, 1, 1, -100}

	indices, err := stats.DetectOutliers(values, stats.MethodIQR, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 8 {
		t.Errorf("expected indices [0 8], got %v", indices)
	}
}
