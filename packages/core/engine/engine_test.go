package engine

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
	"github.com/abdul-hamid-achik/hitscript/packages/extract"
	"github.com/abdul-hamid-achik/hitscript/packages/response"
	"github.com/abdul-hamid-achik/hitscript/packages/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *response.Response {
	return &response.Response{
		Status:     200,
		StatusText: "OK",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Id":         "42",
		},
		Body:     []byte(`{"token":"abc123","user":{"id":7}}`),
		Duration: 80 * time.Millisecond,
	}
}

func TestEngineResolveAgainstEnvironment(t *testing.T) {
	e := New(nil)
	e.SwitchEnvironment(vars.NewEnvironment("dev", map[string]string{
		"baseUrl": "http://localhost:3000",
	}))

	result := e.ResolveVariables("{{baseUrl}}/users", nil)
	assert.Equal(t, "http://localhost:3000/users", result.Resolved)
}

func TestEngineScopeAccessors(t *testing.T) {
	e := New(nil)

	e.SetSessionVariable("s", "1")
	e.SetGlobalVariable("g", "2")
	e.SetEnvironmentVariable("env", "3")

	v, ok := e.GetSessionVariable("s")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok = e.GetGlobalVariable("g")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	v, ok = e.GetEnvironmentVariable("env")
	require.True(t, ok)
	assert.Equal(t, "3", v)

	e.UnsetVariable(vars.ScopeGlobal, "g")
	_, ok = e.GetGlobalVariable("g")
	assert.False(t, ok)
}

func TestEngineSwitchEnvironmentClearsSession(t *testing.T) {
	e := New(nil)
	e.SwitchEnvironment(vars.NewEnvironment("a", nil))
	e.SetSessionVariable("tmp", "x")

	e.SwitchEnvironment(vars.NewEnvironment("b", nil))

	_, ok := e.GetSessionVariable("tmp")
	assert.False(t, ok)
	assert.Equal(t, "b", e.CurrentEnvironment().Name)
}

func TestEngineExtractHeaderIntoGlobal(t *testing.T) {
	e := New(nil)

	errs := e.ExtractVariablesFromResponse(sampleResponse(), []extract.Rule{
		{Name: "id", Source: extract.SourceHeader, Path: "x-id", Target: vars.ScopeGlobal},
	})
	assert.Empty(t, errs)

	v, ok := e.GetGlobalVariable("id")
	require.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestEngineScriptRoundTrip(t *testing.T) {
	e := New(nil)

	pre := e.ExecutePreRequestScript(`pm.globals.set("reqId", "r-1");`)
	require.True(t, pre.Success)

	test := e.ExecuteTestScript(`
		pm.test("status ok", function() { pm.response.to.have.status(200); });
		pm.test("token present", function() { pm.response.to.have.jsonBody("token"); });
	`, sampleResponse())
	require.True(t, test.Success)
	assert.Len(t, test.Tests, 2)

	// The pre-request write is visible to later resolution.
	result := e.ResolveVariables("{{reqId}}", nil)
	assert.Equal(t, "r-1", result.Resolved)
}

func TestEngineHistoryAndReport(t *testing.T) {
	e := New(&config.Config{HistoryLimit: 10, ScriptTimeout: 1000, MaxResolveDepth: 5})

	e.ExecuteTestScript(`pm.test("a", function() {});`, sampleResponse())
	e.ExecuteTestScript(`pm.test("b", function() { throw new Error("bad"); });`, sampleResponse())

	history := e.GetTestHistory(0)
	require.Len(t, history, 2)
	// Most recent first.
	assert.Equal(t, "b", history[0].Results[0].Name)
	assert.Equal(t, 0, history[0].PassedTests)
	assert.Equal(t, "a", history[1].Results[0].Name)
	assert.Equal(t, 1, history[1].PassedTests)

	rep := e.GetTestReport()
	assert.Equal(t, 2, rep.TotalRuns)
	assert.Equal(t, 2, rep.TotalTests)
	assert.Equal(t, 1, rep.PassedTests)
	assert.Equal(t, 1, rep.FailedTests)
	assert.InDelta(t, 50.0, rep.PassRate, 0.01)
}

func TestEngineKeepUnresolvedFromConfig(t *testing.T) {
	keep := true
	e := New(&config.Config{KeepUnresolved: &keep, ScriptTimeout: 1000, MaxResolveDepth: 5, HistoryLimit: 5})

	result := e.ResolveVariables("{{missing}}", nil)
	assert.Equal(t, "{{missing}}", result.Resolved)
}

func TestEngineResolveObjectVariables(t *testing.T) {
	e := New(nil)
	e.SetGlobalVariable("host", "example.com")

	out := e.ResolveObjectVariables(map[string]any{
		"url":     "https://{{host}}/v1",
		"headers": map[string]string{"Host": "{{host}}"},
	}, nil)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/v1", m["url"])
}
