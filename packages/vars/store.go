package vars

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Scope identifies one of the writable variable scopes.
type Scope int

const (
	ScopeSession Scope = iota
	ScopeGlobal
	ScopeEnvironment
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeGlobal:
		return "global"
	case ScopeEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// ParseScope converts a scope name into a Scope.
func ParseScope(name string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "session":
		return ScopeSession, nil
	case "global", "globals":
		return ScopeGlobal, nil
	case "environment", "env":
		return ScopeEnvironment, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", name)
	}
}

// Variable is a single key/value entry. Keys are case-sensitive and unique
// per scope. Enabled only matters inside an environment, where a disabled
// variable is invisible to lookups.
type Variable struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Environment is a named collection of variables. Exactly one environment is
// current in a Store at a time.
type Environment struct {
	Name      string     `json:"name"`
	Variables []Variable `json:"variables"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewEnvironment creates an environment from a plain key/value map with all
// variables enabled.
func NewEnvironment(name string, values map[string]string) *Environment {
	now := time.Now()
	env := &Environment{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range values {
		env.Variables = append(env.Variables, Variable{Key: k, Value: v, Enabled: true})
	}
	return env
}

func (e *Environment) lookup(key string) (string, bool) {
	for i := range e.Variables {
		if e.Variables[i].Key == key && e.Variables[i].Enabled {
			return e.Variables[i].Value, true
		}
	}
	return "", false
}

func (e *Environment) set(key, value string) {
	for i := range e.Variables {
		if e.Variables[i].Key == key {
			e.Variables[i].Value = value
			e.Variables[i].Enabled = true
			e.UpdatedAt = time.Now()
			return
		}
	}
	e.Variables = append(e.Variables, Variable{Key: key, Value: value, Enabled: true})
	e.UpdatedAt = time.Now()
}

func (e *Environment) unset(key string) {
	for i := range e.Variables {
		if e.Variables[i].Key == key {
			e.Variables = append(e.Variables[:i], e.Variables[i+1:]...)
			e.UpdatedAt = time.Now()
			return
		}
	}
}

// Store holds session and global variables plus the current environment.
// All methods are safe for concurrent use; writes from concurrent script
// executions are serialized by the store's lock (last writer wins per key).
type Store struct {
	mu      sync.RWMutex
	session map[string]string
	global  map[string]string
	env     *Environment
	dynamic *DynamicRegistry
}

func NewStore() *Store {
	return &Store{
		session: make(map[string]string),
		global:  make(map[string]string),
		dynamic: NewDynamicRegistry(),
	}
}

// Get returns the value of key in the given scope.
func (s *Store) Get(scope Scope, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch scope {
	case ScopeSession:
		v, ok := s.session[key]
		return v, ok
	case ScopeGlobal:
		v, ok := s.global[key]
		return v, ok
	case ScopeEnvironment:
		if s.env == nil {
			return "", false
		}
		return s.env.lookup(key)
	default:
		return "", false
	}
}

// Set writes key in the given scope. Writing to the environment scope with
// no current environment creates an unnamed one, so scripted
// environment.set calls never vanish silently.
func (s *Store) Set(scope Scope, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch scope {
	case ScopeSession:
		s.session[key] = value
	case ScopeGlobal:
		s.global[key] = value
	case ScopeEnvironment:
		if s.env == nil {
			s.env = NewEnvironment("", nil)
		}
		s.env.set(key, value)
	}
}

// Unset removes key from the given scope. Removing an absent key is a no-op.
func (s *Store) Unset(scope Scope, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch scope {
	case ScopeSession:
		delete(s.session, key)
	case ScopeGlobal:
		delete(s.global, key)
	case ScopeEnvironment:
		if s.env != nil {
			s.env.unset(key)
		}
	}
}

// ClearSession drops every session-scope variable.
func (s *Store) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = make(map[string]string)
}

// SwitchEnvironment swaps the current environment. Session variables are
// tied to one working context, so the swap clears the session scope. The
// swap holds the write lock, so it never interleaves with an in-flight
// script's environment reads or writes.
func (s *Store) SwitchEnvironment(env *Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
	s.session = make(map[string]string)
}

// CurrentEnvironment returns the active environment, or nil.
func (s *Store) CurrentEnvironment() *Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

// Resolve looks key up across all scopes in priority order, falling through
// to the dynamic registry last. It reports the value and the scope name it
// came from.
func (s *Store) Resolve(key string) (value, source string, ok bool) {
	s.mu.RLock()
	if v, found := s.session[key]; found {
		s.mu.RUnlock()
		return v, "session", true
	}
	if v, found := s.global[key]; found {
		s.mu.RUnlock()
		return v, "global", true
	}
	if s.env != nil {
		if v, found := s.env.lookup(key); found {
			s.mu.RUnlock()
			return v, "environment", true
		}
	}
	s.mu.RUnlock()

	if v, found := s.dynamic.Resolve(key); found {
		return v, "dynamic", true
	}
	return "", "", false
}

// SnapshotGlobals copies the global scope. Sandbox runs operate on a copy so
// a crashed script leaves the store untouched.
func (s *Store) SnapshotGlobals() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]string, len(s.global))
	for k, v := range s.global {
		snap[k] = v
	}
	return snap
}

// MergeGlobals writes every entry of m into the global scope, last writer
// wins per key.
func (s *Store) MergeGlobals(m map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range m {
		s.global[k] = v
	}
}
