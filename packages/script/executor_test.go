package script

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitscript/packages/response"
	"github.com/abdul-hamid-achik/hitscript/packages/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResponse() *response.Response {
	return &response.Response{
		Status:     200,
		StatusText: "OK",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Id":         "42",
		},
		Body:     []byte(`{"user":{"id":7,"name":"ada"},"ok":true}`),
		Duration: 120 * time.Millisecond,
	}
}

func newTestExecutor(opts ...Option) (*Executor, *vars.Store) {
	store := vars.NewStore()
	return NewExecutor(store, opts...), store
}

func TestExecuteEmptyScript(t *testing.T) {
	e, _ := newTestExecutor()

	result := e.Execute("", Context{Type: TypePreRequest})

	assert.True(t, result.Success)
	assert.Equal(t, StateCompleted, result.State)
	assert.Empty(t, result.Errors)
}

func TestExecuteConsoleCapture(t *testing.T) {
	e, _ := newTestExecutor()

	result := e.Execute(`
		console.log("hello", 42);
		console.warn("careful");
		console.error({code: 1});
	`, Context{Type: TypePreRequest})

	require.True(t, result.Success)
	require.Len(t, result.Logs, 3)
	assert.Equal(t, "log", result.Logs[0].Level)
	assert.Equal(t, "hello 42", result.Logs[0].Message)
	assert.Equal(t, "warn", result.Logs[1].Level)
	assert.Equal(t, "error", result.Logs[2].Level)
	assert.Contains(t, result.Logs[2].Message, `"code":1`)
}

func TestExecuteSyntaxError(t *testing.T) {
	e, _ := newTestExecutor()

	result := e.Execute("this is not javascript {{{", Context{Type: TypePreRequest})

	assert.False(t, result.Success)
	assert.Equal(t, StateCrashed, result.State)
	require.Len(t, result.Errors, 1)
	assert.NotEmpty(t, result.Errors[0].Message)
}

func TestExecuteUncaughtExceptionPreservesPartialResults(t *testing.T) {
	e, _ := newTestExecutor()

	result := e.Execute(`
		console.log("before");
		pm.test("early test", function() {});
		throw new Error("midway failure");
	`, Context{Type: TypeTest, Response: testResponse()})

	assert.False(t, result.Success)
	assert.Equal(t, StateCrashed, result.State)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "midway failure", result.Errors[0].Message)
	assert.False(t, result.Errors[0].Timeout)

	// Work done before the failure survives.
	require.Len(t, result.Tests, 1)
	assert.True(t, result.Tests[0].Passed)
	require.Len(t, result.Logs, 1)
	assert.Equal(t, "before", result.Logs[0].Message)
}

func TestExecuteTimeout(t *testing.T) {
	e, _ := newTestExecutor(WithTimeout(100 * time.Millisecond))

	start := time.Now()
	result := e.Execute(`while (true) {}`, Context{Type: TypePreRequest})
	elapsed := time.Since(start)

	assert.False(t, result.Success)
	assert.Equal(t, StateTimedOut, result.State)
	require.Len(t, result.Errors, 1)
	assert.True(t, result.Errors[0].Timeout)
	assert.Contains(t, result.Errors[0].Message, "timed out")

	// The host stayed responsive: the runaway loop was cut off near the
	// budget, not allowed to run on.
	assert.Less(t, elapsed, 2*time.Second)
}

func TestExecuteTimeoutInsideTestBlock(t *testing.T) {
	e, _ := newTestExecutor(WithTimeout(100 * time.Millisecond))

	result := e.Execute(`
		pm.test("spins", function() { while (true) {} });
	`, Context{Type: TypeTest, Response: testResponse()})

	assert.False(t, result.Success)
	assert.Equal(t, StateTimedOut, result.State)
}

func TestExecuteNoHostCapabilities(t *testing.T) {
	e, _ := newTestExecutor()

	tests := []struct {
		name   string
		script string
	}{
		{"require", `require("fs")`},
		{"process", `process.exit(1)`},
		{"setTimeout", `setTimeout(function() {}, 10)`},
		{"fetch", `fetch("http://example.com")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Execute(tt.script, Context{Type: TypePreRequest})
			assert.False(t, result.Success)
			assert.Equal(t, StateCrashed, result.State)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0].Message, "not defined")
		})
	}
}

func TestExecuteBuiltinsAvailable(t *testing.T) {
	e, store := newTestExecutor()

	result := e.Execute(`
		var decoded = JSON.parse('{"n": 4}');
		var root = Math.sqrt(decoded.n);
		var year = new Date(0).getUTCFullYear();
		var n = parseInt("12", 10) + parseFloat("0.5");
		var ok = !isNaN(n) && isFinite(n);
		var encoded = btoa("hi");
		var back = atob(encoded);
		globals.set("summary", [root, year, n, ok, encoded, back].join("|"));
	`, Context{Type: TypePreRequest})

	require.True(t, result.Success, "errors: %v", result.Errors)
	v, ok := store.Get(vars.ScopeGlobal, "summary")
	require.True(t, ok)
	assert.Equal(t, "2|1970|12.5|true|aGk=|hi", v)
}

func TestExecuteGlobalsMergedOnlyOnSuccess(t *testing.T) {
	e, store := newTestExecutor()

	result := e.Execute(`
		pm.globals.set("written", "yes");
		throw new Error("boom");
	`, Context{Type: TypePreRequest})
	assert.False(t, result.Success)

	_, ok := store.Get(vars.ScopeGlobal, "written")
	assert.False(t, ok, "crashed run must not merge globals")

	result = e.Execute(`pm.globals.set("written", "yes");`, Context{Type: TypePreRequest})
	require.True(t, result.Success)

	v, ok := store.Get(vars.ScopeGlobal, "written")
	require.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestExecuteGlobalsUnsetMerged(t *testing.T) {
	e, store := newTestExecutor()
	store.Set(vars.ScopeGlobal, "stale", "old")

	result := e.Execute(`pm.globals.unset("stale");`, Context{Type: TypePreRequest})
	require.True(t, result.Success)

	_, ok := store.Get(vars.ScopeGlobal, "stale")
	assert.False(t, ok)
}

func TestExecuteEnvironmentWritesAreLive(t *testing.T) {
	e, store := newTestExecutor()
	store.SwitchEnvironment(vars.NewEnvironment("dev", nil))

	result := e.Execute(`pm.environment.set("token", "t-1");`, Context{Type: TypePreRequest})
	require.True(t, result.Success)

	v, ok := store.Get(vars.ScopeEnvironment, "token")
	require.True(t, ok)
	assert.Equal(t, "t-1", v)
}

func TestExecuteConcurrentInvocations(t *testing.T) {
	e, store := newTestExecutor()

	done := make(chan *ExecutionResult, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			done <- e.Execute(`pm.globals.set("shared", "v");`, Context{Type: TypePreRequest})
		}(i)
	}
	for i := 0; i < 10; i++ {
		result := <-done
		assert.True(t, result.Success)
	}

	v, ok := store.Get(vars.ScopeGlobal, "shared")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestScriptErrorLineNumber(t *testing.T) {
	e, _ := newTestExecutor()

	result := e.Execute("var a = 1;\nvar b = 2;\nthrow new Error(\"on line three\");", Context{Type: TypePreRequest})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Line)
	assert.NotEmpty(t, result.Errors[0].Stack)
}
