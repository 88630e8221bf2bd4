package resolve

import (
	"strconv"
	"testing"

	"github.com/abdul-hamid-achik/hitscript/packages/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver() (*Resolver, *vars.Store) {
	store := vars.NewStore()
	return NewResolver(store), store
}

func TestResolvePlainTextUnchanged(t *testing.T) {
	r, _ := newTestResolver()

	tests := []string{
		"",
		"hello world",
		"{single} braces {are} fine",
		"http://example.com/path?q=1",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			result := r.Resolve(input, Options{})
			assert.Equal(t, input, result.Resolved)
			assert.Empty(t, result.Variables)
			assert.Empty(t, result.Unresolved)
		})
	}
}

func TestResolveSimpleSubstitution(t *testing.T) {
	r, store := newTestResolver()
	store.SwitchEnvironment(vars.NewEnvironment("dev", map[string]string{
		"baseUrl": "http://localhost:3000",
	}))

	result := r.Resolve("{{baseUrl}}/users", Options{})

	assert.Equal(t, "http://localhost:3000/users", result.Resolved)
	require.Len(t, result.Variables, 1)
	assert.Equal(t, "baseUrl", result.Variables[0].Name)
	assert.Equal(t, "{{baseUrl}}", result.Variables[0].Placeholder)
	assert.Equal(t, 0, result.Variables[0].Position)
	assert.Equal(t, "environment", result.Variables[0].Source)
	assert.Empty(t, result.Unresolved)
}

func TestResolveTrimsInnerWhitespace(t *testing.T) {
	r, store := newTestResolver()
	store.Set(vars.ScopeGlobal, "name", "world")

	result := r.Resolve("hello {{ name }}", Options{})
	assert.Equal(t, "hello world", result.Resolved)
}

func TestResolveScopePriority(t *testing.T) {
	r, store := newTestResolver()
	store.SwitchEnvironment(vars.NewEnvironment("dev", map[string]string{"key": "env"}))
	store.Set(vars.ScopeSession, "key", "session")

	result := r.Resolve("{{key}}", Options{})
	assert.Equal(t, "session", result.Resolved)
	require.Len(t, result.Variables, 1)
	assert.Equal(t, "session", result.Variables[0].Source)
}

func TestResolveUnresolvedDroppedByDefault(t *testing.T) {
	r, _ := newTestResolver()

	result := r.Resolve("before {{missing}} after", Options{})

	assert.Equal(t, "before  after", result.Resolved)
	assert.Equal(t, []string{"missing"}, result.Unresolved)
}

func TestResolveKeepUnresolved(t *testing.T) {
	r, _ := newTestResolver()

	result := r.Resolve("before {{missing}} after", Options{KeepUnresolved: true})

	assert.Equal(t, "before {{missing}} after", result.Resolved)
	assert.Equal(t, []string{"missing"}, result.Unresolved)
}

func TestResolveRecursiveValue(t *testing.T) {
	r, store := newTestResolver()
	store.Set(vars.ScopeGlobal, "host", "api.example.com")
	store.Set(vars.ScopeGlobal, "baseUrl", "https://{{host}}/v1")

	result := r.Resolve("{{baseUrl}}/users", Options{})
	assert.Equal(t, "https://api.example.com/v1/users", result.Resolved)
}

func TestResolveSelfReferenceTerminates(t *testing.T) {
	r, store := newTestResolver()
	store.Set(vars.ScopeGlobal, "selfKey", "{{selfKey}}")

	// Must stop at the depth bound, not loop forever.
	result := r.Resolve("{{selfKey}}", Options{KeepUnresolved: true, MaxDepth: 5})
	assert.Equal(t, "{{selfKey}}", result.Resolved)
}

func TestResolveDynamicTimestamp(t *testing.T) {
	r, _ := newTestResolver()

	first := r.Resolve("{{timestamp}}", Options{})
	a, err := strconv.ParseInt(first.Resolved, 10, 64)
	require.NoError(t, err)

	second := r.Resolve("{{timestamp}}", Options{})
	b, err := strconv.ParseInt(second.Resolved, 10, 64)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, b, a)
}

func TestResolveWarnFunc(t *testing.T) {
	r, _ := newTestResolver()
	var warned []string
	r.SetWarnFunc(func(format string, args ...any) {
		warned = append(warned, format)
	})

	r.Resolve("{{nope}}", Options{})
	assert.Len(t, warned, 1)
}

func TestResolveObject(t *testing.T) {
	r, store := newTestResolver()
	store.Set(vars.ScopeGlobal, "id", "42")

	input := map[string]any{
		"url": "/users/{{id}}",
		"headers": map[string]string{
			"X-Request-Id": "{{id}}",
		},
		"tags":  []any{"{{id}}", 7, true},
		"count": 3,
	}

	out, ok := r.ResolveObject(input, Options{}).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "/users/42", out["url"])
	assert.Equal(t, map[string]string{"X-Request-Id": "42"}, out["headers"])
	assert.Equal(t, []any{"42", 7, true}, out["tags"])
	assert.Equal(t, 3, out["count"])

	// The input tree is not mutated.
	assert.Equal(t, "/users/{{id}}", input["url"])
}
