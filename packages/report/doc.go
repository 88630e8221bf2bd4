// Package report aggregates named test outcomes into run statistics and a
// bounded, most-recent-first execution history.
//
// History lives in memory by default; a sqlite-backed Store is available
// for hosts that want records to survive the process.
package report
