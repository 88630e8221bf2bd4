package resolve

import (
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitscript/packages/vars"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// DefaultMaxDepth bounds recursive re-resolution of values that contain
// placeholders themselves.
const DefaultMaxDepth = 5

// WarnFunc is called for each unresolved placeholder.
type WarnFunc func(format string, args ...any)

// Options control one resolution call. The zero value drops unresolved
// placeholders and recurses up to DefaultMaxDepth.
type Options struct {
	KeepUnresolved bool
	MaxDepth       int
}

// Resolution records one resolved placeholder occurrence, for debugging and
// telemetry. Position is the byte offset of the placeholder in the text of
// the pass that resolved it.
type Resolution struct {
	Name        string
	Placeholder string
	Position    int
	Value       string
	Source      string
}

// Result is the outcome of resolving one text.
type Result struct {
	Resolved   string
	Variables  []Resolution
	Unresolved []string
}

// Resolver interpolates placeholders against a variable store.
type Resolver struct {
	mu       sync.RWMutex
	store    *vars.Store
	warnFunc WarnFunc
}

func NewResolver(store *vars.Store) *Resolver {
	return &Resolver{store: store}
}

// SetWarnFunc sets a callback invoked once per unresolved placeholder.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// Resolve substitutes every {{name}} placeholder in text. One full pass
// substitutes all occurrences; if the pass changed the text and the depth
// bound is not exhausted, the output is resolved again so variable values
// containing placeholders expand too. Termination comes from the depth
// bound, not fixed-point detection: a self-referential value stops after
// MaxDepth passes instead of looping.
func (r *Resolver) Resolve(text string, opts Options) Result {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	result := Result{Resolved: text}
	seen := make(map[string]bool)

	for depth := 0; depth < maxDepth; depth++ {
		resolved, changed := r.resolvePass(result.Resolved, opts, seen, &result)
		result.Resolved = resolved
		if !changed {
			break
		}
	}
	return result
}

func (r *Resolver) resolvePass(text string, opts Options, seen map[string]bool, result *Result) (string, bool) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text, false
	}

	var out strings.Builder
	last := 0
	changed := false

	for _, m := range matches {
		start, end := m[0], m[1]
		name := strings.TrimSpace(text[m[2]:m[3]])
		placeholder := text[start:end]

		out.WriteString(text[last:start])
		last = end

		value, source, ok := r.store.Resolve(name)
		if !ok {
			if !seen[name] {
				seen[name] = true
				result.Unresolved = append(result.Unresolved, name)
				r.warn("unresolved variable: %s", name)
			}
			if opts.KeepUnresolved {
				out.WriteString(placeholder)
			} else {
				changed = true
			}
			continue
		}

		result.Variables = append(result.Variables, Resolution{
			Name:        name,
			Placeholder: placeholder,
			Position:    start,
			Value:       value,
			Source:      source,
		})
		out.WriteString(value)
		if value != placeholder {
			changed = true
		}
	}
	out.WriteString(text[last:])
	return out.String(), changed
}

// ResolveObject applies Resolve to every string leaf of a nested
// map/slice/scalar tree, as produced by encoding/json, and returns the
// interpolated copy. Non-string leaves pass through untouched.
func (r *Resolver) ResolveObject(v any, opts Options) any {
	switch val := v.(type) {
	case string:
		return r.Resolve(val, opts).Resolved
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.ResolveObject(item, opts)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = r.Resolve(item, opts).Resolved
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.ResolveObject(item, opts)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = r.Resolve(item, opts).Resolved
		}
		return out
	default:
		return v
	}
}
