// Package pricing computes call costs from per-model token prices and
// estimates token counts for text.
package pricing

import (
	"sort"
	"sync"
)

// Price is what a model charges per one million tokens, in EUR.
type Price struct {
	InputPer1M  float64 `json:"input_per_1m"`
	OutputPer1M float64 `json:"output_per_1m"`
}

// Table maps model identifiers to prices. The zero value is usable; a
// Table created with NewTable starts from the built-in price list.
type Table struct {
	mu     sync.RWMutex
	prices map[string]Price
}

// defaultPrices is the published per-1M-token price list, in EUR.
var defaultPrices = map[string]Price{
	"claude-opus-4-1":     {InputPer1M: 13.80, OutputPer1M: 69.00},
	"claude-opus-4":       {InputPer1M: 13.80, OutputPer1M: 69.00},
	"claude-sonnet-4":     {InputPer1M: 5.06, OutputPer1M: 23.00},
	"mistral-large-24-11": {InputPer1M: 1.84, OutputPer1M: 5.52},
	"mistral-medium-3":    {InputPer1M: 0.37, OutputPer1M: 1.84},
	"mistral-small-3-1":   {InputPer1M: 0.09, OutputPer1M: 0.28},
	"mistral-nemo":        {InputPer1M: 0.14, OutputPer1M: 0.14},
	"gpt-5":               {InputPer1M: 1.15, OutputPer1M: 9.20},
	"gpt-5-mini":          {InputPer1M: 0.23, OutputPer1M: 1.84},
	"gpt-5-nano":          {InputPer1M: 0.05, OutputPer1M: 0.37},
	"gpt-4-1":             {InputPer1M: 0.92, OutputPer1M: 3.68},
	"gpt-4-1-mini":        {InputPer1M: 0.18, OutputPer1M: 0.73},
	"gpt-4o":              {InputPer1M: 1.15, OutputPer1M: 4.60},
}

// NewTable returns a Table seeded with the built-in price list.
func NewTable() *Table {
	prices := make(map[string]Price, len(defaultPrices))
	for model, p := range defaultPrices {
		prices[model] = p
	}
	return &Table{prices: prices}
}

// Cost returns the price of a call in EUR. Unknown models cost 0.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prices[model]
	if !ok {
		return 0
	}
	inputCost := float64(inputTokens) / 1_000_000 * p.InputPer1M
	outputCost := float64(outputTokens) / 1_000_000 * p.OutputPer1M
	return inputCost + outputCost
}

// Lookup returns the price entry for a model, if one exists.
func (t *Table) Lookup(model string) (Price, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prices[model]
	return p, ok
}

// Register sets or overrides the price for a model.
func (t *Table) Register(model string, inputPer1M, outputPer1M float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.prices == nil {
		t.prices = make(map[string]Price)
	}
	t.prices[model] = Price{InputPer1M: inputPer1M, OutputPer1M: outputPer1M}
}

// Models lists the known model identifiers, sorted.
func (t *Table) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	models := make([]string, 0, len(t.prices))
	for model := range t.prices {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
