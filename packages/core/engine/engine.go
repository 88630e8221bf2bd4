// Package engine is the host-facing facade over the script and variable
// cores. It owns one variable store, resolver, sandbox executor, and test
// history, and is the only surface external collaborators (transport,
// persistence, UI) talk to.
package engine

import (
	"github.com/abdul-hamid-achik/hitscript/packages/core/config"
	"github.com/abdul-hamid-achik/hitscript/packages/extract"
	"github.com/abdul-hamid-achik/hitscript/packages/report"
	"github.com/abdul-hamid-achik/hitscript/packages/resolve"
	"github.com/abdul-hamid-achik/hitscript/packages/response"
	"github.com/abdul-hamid-achik/hitscript/packages/script"
	"github.com/abdul-hamid-achik/hitscript/packages/vars"
)

// Engine ties the variable store, resolver, sandbox executor, and history
// together. One Engine serves the whole host process; concurrent script
// executions share its store.
type Engine struct {
	cfg      *config.Config
	store    *vars.Store
	resolver *resolve.Resolver
	executor *script.Executor
	history  *report.History
}

// New builds an engine from cfg; a nil cfg means defaults.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	store := vars.NewStore()
	return &Engine{
		cfg:      cfg,
		store:    store,
		resolver: resolve.NewResolver(store),
		executor: script.NewExecutor(store, script.WithTimeout(cfg.ScriptTimeoutDuration())),
		history:  report.NewHistory(cfg.HistoryLimit),
	}
}

// Store exposes the engine's variable store for direct host access.
func (e *Engine) Store() *vars.Store {
	return e.store
}

// SetWarnFunc routes unresolved-placeholder warnings to the host.
func (e *Engine) SetWarnFunc(fn resolve.WarnFunc) {
	e.resolver.SetWarnFunc(fn)
}

func (e *Engine) defaultOptions() resolve.Options {
	return resolve.Options{
		KeepUnresolved: e.cfg.GetKeepUnresolved(),
		MaxDepth:       e.cfg.MaxResolveDepth,
	}
}

// ResolveVariables interpolates {{name}} placeholders in text. A nil opts
// uses the engine's configured defaults.
func (e *Engine) ResolveVariables(text string, opts *resolve.Options) resolve.Result {
	if opts == nil {
		o := e.defaultOptions()
		opts = &o
	}
	return e.resolver.Resolve(text, *opts)
}

// ResolveObjectVariables interpolates every string leaf of a nested
// map/slice structure, e.g. a whole request definition.
func (e *Engine) ResolveObjectVariables(obj any, opts *resolve.Options) any {
	if opts == nil {
		o := e.defaultOptions()
		opts = &o
	}
	return e.resolver.ResolveObject(obj, *opts)
}

func (e *Engine) SetSessionVariable(key, value string) {
	e.store.Set(vars.ScopeSession, key, value)
}

func (e *Engine) GetSessionVariable(key string) (string, bool) {
	return e.store.Get(vars.ScopeSession, key)
}

func (e *Engine) SetGlobalVariable(key, value string) {
	e.store.Set(vars.ScopeGlobal, key, value)
}

func (e *Engine) GetGlobalVariable(key string) (string, bool) {
	return e.store.Get(vars.ScopeGlobal, key)
}

func (e *Engine) SetEnvironmentVariable(key, value string) {
	e.store.Set(vars.ScopeEnvironment, key, value)
}

func (e *Engine) GetEnvironmentVariable(key string) (string, bool) {
	return e.store.Get(vars.ScopeEnvironment, key)
}

func (e *Engine) UnsetVariable(scope vars.Scope, key string) {
	e.store.Unset(scope, key)
}

// SwitchEnvironment swaps the current environment and clears the session
// scope.
func (e *Engine) SwitchEnvironment(env *vars.Environment) {
	e.store.SwitchEnvironment(env)
}

func (e *Engine) CurrentEnvironment() *vars.Environment {
	return e.store.CurrentEnvironment()
}

// ExtractVariablesFromResponse applies declarative extraction rules to a
// completed response, writing found values into the store. Per-rule errors
// are returned; they never stop the remaining rules.
func (e *Engine) ExtractVariablesFromResponse(resp *response.Response, rules []extract.Rule) []*extract.RuleError {
	return extract.ExtractAll(resp, e.store, rules)
}

// ExecutePreRequestScript runs a pre-request script with no response bound.
func (e *Engine) ExecutePreRequestScript(scriptText string) *script.ExecutionResult {
	return e.executor.Execute(scriptText, script.Context{Type: script.TypePreRequest})
}

// ExecuteTestScript runs a test script bound to resp and appends the
// composite outcome to the bounded history. Failed runs are recorded too;
// their partial test results still count.
func (e *Engine) ExecuteTestScript(scriptText string, resp *response.Response) *script.ExecutionResult {
	result := e.executor.Execute(scriptText, script.Context{Type: script.TypeTest, Response: resp})

	var responseTimeMs int64
	if resp != nil {
		responseTimeMs = resp.DurationMs()
	}
	e.history.Append(report.NewExecutionRecord(result.Tests, responseTimeMs))
	return result
}

// GetTestHistory returns up to limit execution records, most recent first.
func (e *Engine) GetTestHistory(limit int) []report.ExecutionRecord {
	return e.history.Recent(limit)
}

// GetTestReport aggregates the retained history into run statistics.
func (e *Engine) GetTestReport() *report.Report {
	return report.BuildReport(e.history.Recent(0))
}
