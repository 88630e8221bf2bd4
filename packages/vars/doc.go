// Package vars holds the layered variable store used by variable resolution
// and test scripts.
//
// Three writable scopes exist — session, global, and environment — plus a
// read-only set of dynamic variables (timestamps, UUIDs, random values)
// computed on every read. Lookup priority is always:
//
//	session > global > environment > dynamic
//
// The store is safe for concurrent use; script executions share one store
// and mutate it as a side effect.
package vars
