// Package cases loads evaluation cases from CSV or JSON files and renders
// prompt templates against their inputs.
package cases

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/promptgauge/promptgauge/internal/harness"
)

// Load reads a cases file, picking the parser from the extension
// (.csv, .json). Anything else is an error.
func Load(path string) ([]harness.Case, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported cases file extension: %s", path)
	}
}

// LoadCSV reads cases from a CSV file. The first row names the columns;
// the reserved columns "name" and "expected" map to the case fields and
// every other column becomes an input variable.
func LoadCSV(path string) ([]harness.Case, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cases file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cases CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("cases CSV needs a header row and at least one data row")
	}

	header := rows[0]
	out := make([]harness.Case, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(row), len(header))
		}
		c := harness.Case{Inputs: map[string]any{}}
		for j, column := range header {
			switch column {
			case "name":
				c.Name = row[j]
			case "expected":
				c.Expected = row[j]
			default:
				c.Inputs[column] = row[j]
			}
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i+1)
		}
		out = append(out, c)
	}
	return out, nil
}

// jsonCase is the file shape for one JSON case. Inputs may be given
// nested or as extra top-level fields.
type jsonCase struct {
	Name     string         `json:"name"`
	Expected string         `json:"expected"`
	Inputs   map[string]any `json:"inputs"`
}

// LoadJSON reads cases from a JSON array of objects.
func LoadJSON(path string) ([]harness.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open cases file: %w", err)
	}

	var raw []jsonCase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode cases JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("cases file contains no cases")
	}

	out := make([]harness.Case, 0, len(raw))
	for i, jc := range raw {
		c := harness.Case{
			Name:     jc.Name,
			Expected: jc.Expected,
			Inputs:   jc.Inputs,
		}
		if c.Inputs == nil {
			c.Inputs = map[string]any{}
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("case-%d", i+1)
		}
		out = append(out, c)
	}
	return out, nil
}

// Render replaces every {{key}} placeholder in the template with the
// matching input value. Placeholders without a value are left as-is so
// they stay visible in the rendered prompt.
func Render(template string, inputs map[string]any) string {
	result := template
	for key, value := range inputs {
		result = strings.ReplaceAll(result, "{{"+key+"}}", fmt.Sprintf("%v", value))
	}
	return result
}
