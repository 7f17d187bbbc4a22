package metrics

import "sync"

// Aggregator accumulates records from concurrent producers. Every method is
// safe for concurrent use; reads hand back copies so callers never observe
// a record mid-update.
type Aggregator struct {
	mu      sync.Mutex
	records []Record
}

// NewAggregator initializes an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add stores one record, applying builder defaults first.
func (a *Aggregator) Add(r Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, r.clone().finalize())
}

// AddMap builds a record from named fields and stores it.
func (a *Aggregator) AddMap(fields map[string]any) error {
	r, err := FromMap(fields)
	if err != nil {
		return err
	}
	a.Add(r)
	return nil
}

// AddBatch stores records in order as a single locked operation.
func (a *Aggregator) AddBatch(records []Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range records {
		a.records = append(a.records, r.clone().finalize())
	}
}

// Len reports how many records are held.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Records returns a copy of all held records in insertion order.
func (a *Aggregator) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyLocked(a.records)
}

// Failures returns the records for unsuccessful calls, in insertion order.
func (a *Aggregator) Failures() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	var failed []Record
	for _, r := range a.records {
		if !r.Success {
			failed = append(failed, r.clone())
		}
	}
	return failed
}

// FilterByModel returns the records produced by the given model.
func (a *Aggregator) FilterByModel(model string) []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	var matched []Record
	for _, r := range a.records {
		if r.Model == model {
			matched = append(matched, r.clone())
		}
	}
	return matched
}

// Clear discards all held records.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = nil
}

// Summary computes the aggregate summary over all held records.
func (a *Aggregator) Summary() Summary {
	return Summarize(a.snapshot())
}

// SummaryByModel groups records by model and summarizes each group. Groups
// appear in first-seen order; records without a model are skipped.
func (a *Aggregator) SummaryByModel() []ModelSummary {
	records := a.snapshot()
	var order []string
	groups := make(map[string][]Record)
	for _, r := range records {
		if r.Model == "" {
			continue
		}
		if _, seen := groups[r.Model]; !seen {
			order = append(order, r.Model)
		}
		groups[r.Model] = append(groups[r.Model], r)
	}
	summaries := make([]ModelSummary, 0, len(order))
	for _, model := range order {
		summaries = append(summaries, ModelSummary{Model: model, Summary: Summarize(groups[model])})
	}
	return summaries
}

// ToList projects all held records into plain maps, in insertion order.
// Feeding the result back through AddMap reproduces the same summary.
func (a *Aggregator) ToList() []map[string]any {
	records := a.snapshot()
	list := make([]map[string]any, 0, len(records))
	for _, r := range records {
		list = append(list, r.ToMap())
	}
	return list
}

// MetricValues collects the present values of the named metric across all
// held records, in insertion order.
func (a *Aggregator) MetricValues(metric string) []float64 {
	return MetricValues(a.snapshot(), metric)
}

func (a *Aggregator) snapshot() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyLocked(a.records)
}

func (a *Aggregator) copyLocked(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}
	return out
}
