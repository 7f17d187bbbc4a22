package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/promptgauge/promptgauge/internal/experiment"
	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/threshold"
)

// HTMLReportData contains everything the HTML report template renders.
type HTMLReportData struct {
	GeneratedAt      string
	Prompt           string
	Version          string
	Model            string
	Run              harness.RunSummary
	ThresholdResults []threshold.Result
	ThresholdsFailed bool
	Experiment       *experiment.Result
}

// GenerateHTMLReport renders a standalone HTML report for a batch run.
func GenerateHTMLReport(w io.Writer, data HTMLReportData) error {
	if data.GeneratedAt == "" {
		data.GeneratedAt = time.Now().Format(time.RFC3339)
	}
	data.ThresholdsFailed = threshold.AnyFailed(data.ThresholdResults)

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(f float64) string {
			return fmt.Sprintf("%.1f", f*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteHTMLReport renders the report to a file.
func WriteHTMLReport(path string, data HTMLReportData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := GenerateHTMLReport(f, data); err != nil {
		return err
	}
	return f.Close()
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Promptgauge Report{{if .Prompt}} - {{.Prompt}}{{end}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1100px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 { font-size: 1.8rem; margin-bottom: 8px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.85rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 8px;
        }
        .card .value { font-size: 1.8rem; font-weight: bold; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section { margin-bottom: 40px; }
        .section h2 {
            font-size: 1.2rem;
            margin-bottom: 15px;
            border-bottom: 2px solid #e9ecef;
            padding-bottom: 8px;
        }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px 12px; border-bottom: 1px solid #e9ecef; }
        th { font-size: 0.8rem; text-transform: uppercase; color: #6c757d; }
        td.num { font-variant-numeric: tabular-nums; }
        .pass { color: #10b981; font-weight: bold; }
        .fail { color: #ef4444; font-weight: bold; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>Promptgauge Report{{if .Prompt}}: {{.Prompt}}{{if .Version}}@{{.Version}}{{end}}{{end}}</h1>
        <div class="meta">Generated {{.GeneratedAt}}{{if .Model}} &middot; model {{.Model}}{{end}}</div>
    </header>
    <div class="content">
        <div class="grid">
            <div class="card"><h3>Cases</h3><div class="value">{{.Run.Total}}</div></div>
            <div class="card success"><h3>Passed</h3><div class="value">{{.Run.Passed}}</div></div>
            <div class="card error"><h3>Failed</h3><div class="value">{{.Run.Failed}}</div></div>
            <div class="card"><h3>Pass Rate</h3><div class="value">{{formatPercent .Run.PassRate}}%</div></div>
            <div class="card"><h3>Duration</h3><div class="value">{{formatFloat .Run.DurationMs}} ms</div></div>
        </div>

        {{if .Run.Metrics}}
        <div class="section">
            <h2>Metrics</h2>
            <table>
                <tr><th>Metric</th><th>Count</th><th>Mean</th><th>Median</th><th>Std Dev</th><th>Min</th><th>Max</th></tr>
                {{range .Run.Metrics}}
                <tr>
                    <td>{{.Name}}</td>
                    <td class="num">{{.Count}}</td>
                    <td class="num">{{formatFloat .Mean}}</td>
                    <td class="num">{{formatFloat .Median}}</td>
                    <td class="num">{{formatFloat .StdDev}}</td>
                    <td class="num">{{formatFloat .Min}}</td>
                    <td class="num">{{formatFloat .Max}}</td>
                </tr>
                {{end}}
            </table>
        </div>
        {{end}}

        {{if .ThresholdResults}}
        <div class="section">
            <h2>Thresholds {{if .ThresholdsFailed}}<span class="fail">FAILED</span>{{else}}<span class="pass">PASSED</span>{{end}}</h2>
            <table>
                <tr><th>Threshold</th><th>Actual</th><th>Result</th></tr>
                {{range .ThresholdResults}}
                <tr>
                    <td>{{.Threshold.Raw}}</td>
                    <td class="num">{{formatFloat .Actual}}</td>
                    <td>{{if .Pass}}<span class="pass">PASS</span>{{else}}<span class="fail">FAIL</span>{{end}}</td>
                </tr>
                {{end}}
            </table>
        </div>
        {{end}}

        {{if .Experiment}}
        <div class="section">
            <h2>Experiment: {{.Experiment.Metric}}</h2>
            <table>
                <tr><th>Arm</th><th>Version</th><th>Mean</th><th>Samples</th></tr>
                <tr><td>A</td><td>{{.Experiment.VersionA}}</td><td class="num">{{formatFloat .Experiment.MeanA}}</td><td class="num">{{.Experiment.SamplesA}}</td></tr>
                <tr><td>B</td><td>{{.Experiment.VersionB}}</td><td class="num">{{formatFloat .Experiment.MeanB}}</td><td class="num">{{.Experiment.SamplesB}}</td></tr>
            </table>
            <p style="margin-top: 12px;">
                Winner: <strong>{{.Experiment.Winner}}{{if .Experiment.WinnerVersion}} ({{.Experiment.WinnerVersion}}){{end}}</strong>
                &middot; Improvement {{formatFloat .Experiment.Improvement}}%
                &middot; Confidence {{formatPercent .Experiment.Confidence}}%
            </p>
        </div>
        {{end}}
    </div>
</div>
</body>
</html>
`
