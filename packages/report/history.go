package report

import (
	"sync"
	"time"
)

// DefaultRetention is how many execution records the in-memory history
// keeps before dropping the oldest.
const DefaultRetention = 50

// TestResult is one named pm.test outcome. Records are immutable once
// appended to a run.
type TestResult struct {
	Name       string    `json:"name"`
	Passed     bool      `json:"passed"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executedAt"`
}

// ExecutionRecord is the composite outcome of one test-script run.
type ExecutionRecord struct {
	Results        []TestResult `json:"results"`
	TotalTests     int          `json:"totalTests"`
	PassedTests    int          `json:"passedTests"`
	FailedTests    int          `json:"failedTests"`
	PassRate       float64      `json:"passRate"`
	ResponseTimeMs int64        `json:"responseTimeMs"`
	ExecutedAt     time.Time    `json:"executedAt"`
}

// NewExecutionRecord computes run statistics from a list of test results.
func NewExecutionRecord(results []TestResult, responseTimeMs int64) ExecutionRecord {
	rec := ExecutionRecord{
		Results:        results,
		TotalTests:     len(results),
		ResponseTimeMs: responseTimeMs,
		ExecutedAt:     time.Now(),
	}
	for _, r := range results {
		if r.Passed {
			rec.PassedTests++
		} else {
			rec.FailedTests++
		}
	}
	if rec.TotalTests > 0 {
		rec.PassRate = float64(rec.PassedTests) / float64(rec.TotalTests) * 100
	}
	return rec
}

// History is a bounded, concurrency-safe list of execution records.
type History struct {
	mu        sync.RWMutex
	records   []ExecutionRecord
	retention int
}

func NewHistory(retention int) *History {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &History{retention: retention}
}

// Append adds a record, evicting the oldest once past the retention bound.
func (h *History) Append(rec ExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if len(h.records) > h.retention {
		h.records = h.records[len(h.records)-h.retention:]
	}
}

// Recent returns up to limit records, most recent first. limit <= 0 means
// all retained records.
func (h *History) Recent(limit int) []ExecutionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ExecutionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.records[i])
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
