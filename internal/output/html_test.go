package output_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/promptgauge/promptgauge/internal/experiment"
	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/output"
	"github.com/promptgauge/promptgauge/internal/stats"
	"github.com/promptgauge/promptgauge/internal/threshold"
)

func sampleReportData(t *testing.T) output.HTMLReportData {
	t.Helper()
	th, err := threshold.Parse("latency_ms:p95 < 500")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return output.HTMLReportData{
		Prompt:  "summarizer",
		Version: "1.1.0",
		Model:   "gpt-4o",
		Run: harness.RunSummary{
			Total:      20,
			Passed:     18,
			Failed:     2,
			PassRate:   0.9,
			DurationMs: 8000,
			Metrics: []stats.NamedStats{
				{Name: "latency_ms", Stats: stats.Stats{Count: 20, Mean: 312.4, Median: 300, Min: 180, Max: 520}},
			},
		},
		ThresholdResults: []threshold.Result{
			{Threshold: th, Actual: 480, Pass: true},
		},
	}
}

func TestGenerateHTMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, sampleReportData(t)); err != nil {
		t.Fatalf("GenerateHTMLReport: %v", err)
	}

	html := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"summarizer@1.1.0",
		"gpt-4o",
		"latency_ms",
		"latency_ms:p95 &lt; 500",
		"PASS",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(html, "Experiment:") {
		t.Error("report shows experiment section without experiment data")
	}
}

func TestGenerateHTMLReportWithExperiment(t *testing.T) {
	data := sampleReportData(t)
	data.Experiment = &experiment.Result{
		Metric:        "quality_score",
		VersionA:      "1.0.0",
		VersionB:      "1.1.0",
		MeanA:         7.0,
		MeanB:         8.2,
		SamplesA:      30,
		SamplesB:      30,
		Winner:        "B",
		WinnerVersion: "1.1.0",
		Improvement:   17.1,
		Confidence:    0.95,
	}

	var buf bytes.Buffer
	if err := output.GenerateHTMLReport(&buf, data); err != nil {
		t.Fatalf("GenerateHTMLReport: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "Experiment: quality_score") || !strings.Contains(html, "1.1.0") {
		t.Errorf("experiment section missing:\n%s", html[:200])
	}
}

func TestWriteHTMLReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := output.WriteHTMLReport(path, sampleReportData(t)); err != nil {
		t.Fatalf("WriteHTMLReport: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(content), "Promptgauge Report") {
		t.Error("written report missing title")
	}
}
