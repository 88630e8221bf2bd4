// Package extract pulls values out of completed HTTP responses and writes
// them into the variable store.
//
// Rules are declarative: each names a source (header, body, or cookie), a
// path, an optional regex fallback and type conversion, and the target
// scope. A rule that finds nothing is a no-op; a rule with a malformed path
// or a failed number conversion reports a per-rule error and the remaining
// rules still run.
package extract
