// Package resolve interpolates {{name}} placeholders against the variable
// store.
//
// Each placeholder is looked up across the store's scopes in priority order
// (session, global, environment, dynamic). Values that themselves contain
// placeholders are re-resolved up to a bounded depth, so resolution always
// terminates even for self-referential variables. Unresolved placeholders
// are dropped from the output by default; set Options.KeepUnresolved to
// leave them verbatim instead.
package resolve
