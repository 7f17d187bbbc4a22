// Package dashboard renders a live terminal UI for batch runs and A/B
// experiments.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/promptgauge/promptgauge/internal/experiment"
	"github.com/promptgauge/promptgauge/internal/harness"
)

// RunConfig holds the run parameters shown in the summary pane.
type RunConfig struct {
	Prompt     string
	Version    string        // single-version runs
	Model      string        // target model
	Total      int           // cases to execute (per arm for experiments)
	Workers    int           // concurrent workers
	Rate       int           // cases per second (0 = unlimited)
	Timeout    time.Duration // per-case timeout
	ConfigFile string        // path to config file if used
}

// Dashboard renders live run metrics until the user quits or the run ends.
type Dashboard struct {
	collector    *harness.Collector
	exp          *experiment.Runner // nil for single-version runs
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid           *ui.Grid
	summaryPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	armPara        *widgets.Paragraph
	failureList    *widgets.List
	latencyHistory []float64
	startTime      time.Time
	runConfig      RunConfig
}

// New creates a Dashboard. exp may be nil when there is no experiment; its
// panel then shows run totals only. shutdownFunc is invoked on q/Ctrl-C so
// the caller can cancel the batch cooperatively.
func New(collector *harness.Collector, cfg RunConfig, exp *experiment.Runner, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		exp:            exp,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Progress"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.armPara = widgets.NewParagraph()
	d.armPara.Title = "Experiment"
	d.armPara.Text = "No experiment running"
	d.armPara.BorderStyle.Fg = ui.ColorCyan

	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.progressGauge),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.40,
			ui.NewCol(0.5, d.armPara),
			ui.NewCol(0.5, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the collector and experiment.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	snap := d.collector.Snapshot(elapsed)

	if snap.MeanLatencyMs > 0 {
		d.latencyHistory = append(d.latencyHistory, snap.MeanLatencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Mean: %.1fms | Min: %.1fms | Max: %.1fms",
			snap.MeanLatencyMs,
			snap.MinLatencyMs,
			snap.MaxLatencyMs,
		)
	}

	expected := d.expectedTotal()
	percent := 0
	if expected > 0 {
		percent = int(float64(snap.Total) / float64(expected) * 100)
		if percent > 100 {
			percent = 100
		}
	}
	d.progressGauge.Percent = percent
	if expected > 0 {
		d.progressGauge.Label = fmt.Sprintf("%d/%d cases", snap.Total, expected)
	} else {
		d.progressGauge.Label = fmt.Sprintf("%d cases", snap.Total)
	}

	successRate := 0.0
	if snap.Total > 0 {
		successRate = (float64(snap.Successes) / float64(snap.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"%s\n%s\nElapsed: %s | Cases: %d | Success Rate: %.1f%% | %.1f cases/s",
		d.headline(),
		d.formatRunParams(),
		elapsed.Round(time.Second),
		snap.Total,
		successRate,
		snap.CallsPerSec,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.1fms\nMean: %.1fms\nP50:  %.1fms\nP90:  %.1fms\nP99:  %.1fms",
		snap.MinLatencyMs,
		snap.MeanLatencyMs,
		snap.P50LatencyMs,
		snap.P90LatencyMs,
		snap.P99LatencyMs,
	)

	d.updateExperimentPane()
	d.failureList.Rows = formatFailureRows(snap.Errors)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

// expectedTotal is the case count the progress gauge fills against; an
// experiment runs every case through both arms.
func (d *Dashboard) expectedTotal() int {
	if d.runConfig.Total <= 0 {
		return 0
	}
	if d.exp != nil {
		return d.runConfig.Total * 2
	}
	return d.runConfig.Total
}

func (d *Dashboard) headline() string {
	label := d.runConfig.Prompt
	if d.runConfig.Version != "" {
		label += "@" + d.runConfig.Version
	}
	if label == "" {
		label = "ad-hoc run"
	}
	if d.runConfig.Model != "" {
		label += " | Model: " + d.runConfig.Model
	}
	return label
}

func (d *Dashboard) updateExperimentPane() {
	if d.exp == nil {
		d.armPara.Text = "[No experiment running](fg:green)"
		return
	}

	na, nb := d.exp.SampleCounts()
	lines := []string{
		fmt.Sprintf("[Metric:](fg:white) [%s](fg:yellow)", d.exp.Metric()),
		fmt.Sprintf("[Arm A:](fg:cyan) %d samples", na),
		fmt.Sprintf("[Arm B:](fg:cyan) %d samples", nb),
	}

	result, err := d.exp.Result()
	if err != nil {
		lines = append(lines, "[Awaiting data on both arms](fg:green)")
	} else {
		leader := result.Winner
		if result.WinnerVersion != "" {
			leader += " (" + result.WinnerVersion + ")"
		}
		lines = append(lines,
			fmt.Sprintf("[Mean A/B:](fg:white) %.3f / %.3f", result.MeanA, result.MeanB),
			fmt.Sprintf("[Leader:](fg:white) [%s](fg:yellow) %+.1f%%", leader, result.Improvement),
			fmt.Sprintf("[Confidence:](fg:white) %.0f%%", result.Confidence*100),
		)
	}
	d.armPara.Text = strings.Join(lines, "\n")
}

func formatFailureRows(errors map[string]int) []string {
	if len(errors) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	kinds := make([]string, 0, len(errors))
	for kind := range errors {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if errors[kinds[i]] == errors[kinds[j]] {
			return kinds[i] < kinds[j]
		}
		return errors[kinds[i]] > errors[kinds[j]]
	})
	if len(kinds) > 10 {
		kinds = kinds[:10]
	}
	rows := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) x%d", kind, errors[kind]))
	}
	return rows
}

// formatRunParams formats the run configuration for the summary pane.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Workers > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.runConfig.Workers))
	}
	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if d.runConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.runConfig.Timeout))
	}
	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
