package report

import (
	"github.com/HdrHistogram/hdrhistogram-go"
)

// Report summarizes the retained execution history.
type Report struct {
	TotalRuns   int     `json:"totalRuns"`
	TotalTests  int     `json:"totalTests"`
	PassedTests int     `json:"passedTests"`
	FailedTests int     `json:"failedTests"`
	PassRate    float64 `json:"passRate"`

	// Response-time distribution across runs, milliseconds.
	P50ResponseMs int64 `json:"p50ResponseMs"`
	P95ResponseMs int64 `json:"p95ResponseMs"`
	P99ResponseMs int64 `json:"p99ResponseMs"`
	MaxResponseMs int64 `json:"maxResponseMs"`
}

// BuildReport aggregates records into a Report.
func BuildReport(records []ExecutionRecord) *Report {
	r := &Report{TotalRuns: len(records)}
	if len(records) == 0 {
		return r
	}

	hist := hdrhistogram.New(1, 60_000_000, 3)
	for _, rec := range records {
		r.TotalTests += rec.TotalTests
		r.PassedTests += rec.PassedTests
		r.FailedTests += rec.FailedTests
		if rec.ResponseTimeMs > 0 {
			_ = hist.RecordValue(rec.ResponseTimeMs)
		}
	}
	if r.TotalTests > 0 {
		r.PassRate = float64(r.PassedTests) / float64(r.TotalTests) * 100
	}
	if hist.TotalCount() > 0 {
		r.P50ResponseMs = hist.ValueAtQuantile(50)
		r.P95ResponseMs = hist.ValueAtQuantile(95)
		r.P99ResponseMs = hist.ValueAtQuantile(99)
		r.MaxResponseMs = hist.Max()
	}
	return r
}
