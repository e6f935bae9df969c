package benchmark

import "time"

// Report is the outcome of one suite run.
type Report struct {
	RunID      string    `json:"run_id"`
	Provider   string    `json:"provider,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Passed returns the results that passed.
func (r *Report) Passed() []Result {
	return r.filter(true)
}

// Failed returns the results that failed, including execution errors.
func (r *Report) Failed() []Result {
	return r.filter(false)
}

func (r *Report) filter(passed bool) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Passed == passed {
			out = append(out, res)
		}
	}
	return out
}

// Summary aggregates a report. Token and cost totals only count results
// whose provider reported usage.
type Summary struct {
	Total          int     `json:"total"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Errors         int     `json:"errors"`
	PassRate       float64 `json:"pass_rate"`
	TotalLatencyMS float64 `json:"total_latency_ms"`
	MeanLatencyMS  float64 `json:"mean_latency_ms"`
	TotalTokens    int     `json:"total_tokens"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
}

// Summarize computes aggregate statistics over the report's results.
func (r *Report) Summarize() Summary {
	s := Summary{Total: len(r.Results)}
	measured := 0
	for _, res := range r.Results {
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		if res.ExecutionError != "" {
			s.Errors++
		}
		if res.Metrics == nil {
			continue
		}
		measured++
		s.TotalLatencyMS += res.Metrics.LatencyMS
		if res.Metrics.TotalTokens != nil {
			s.TotalTokens += *res.Metrics.TotalTokens
		}
		if res.Metrics.CostUSD != nil {
			s.TotalCostUSD += *res.Metrics.CostUSD
		}
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	if measured > 0 {
		s.MeanLatencyMS = s.TotalLatencyMS / float64(measured)
	}
	return s
}
