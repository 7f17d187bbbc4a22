// Package metrics models individual LLM call observations and their
// aggregation across a session.
//
// # Records
//
// A [Record] captures one call: token usage, cost, latency, quality scores,
// sampling parameters, and outcome. Numeric fields are pointers so that "not
// observed" stays distinct from zero. Records can be built directly or from
// loosely-typed field maps:
//
//	r, err := metrics.FromMap(map[string]any{
//		"model":         "gpt-4o",
//		"input_tokens":  120,
//		"output_tokens": 48,
//		"latency_ms":    950.0,
//	})
//
// Unrecognized keys land in [Record.Metadata], and total tokens default to
// input+output when only the parts were given.
//
// # Aggregation
//
// The [Aggregator] accumulates records from concurrent workers:
//
//	agg := metrics.NewAggregator()
//	agg.Add(record)
//
//	summary := agg.Summary()
//	perModel := agg.SummaryByModel()
//
// A [Summary] reports counts, success rate, token totals, cost and latency
// aggregates, and model usage. Fields with no observations report zero
// rather than erroring, so an empty session is always representable.
//
// # Thread Safety
//
// All Aggregator methods are safe for concurrent use. Reads return deep
// copies; mutating a returned record or map never affects stored data.
package metrics
