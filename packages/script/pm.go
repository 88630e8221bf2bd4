package script

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/hitscript/packages/report"
	"github.com/abdul-hamid-achik/hitscript/packages/response"
	"github.com/abdul-hamid-achik/hitscript/packages/vars"
)

// sandbox wires the capability surface of one execution into its VM. The
// global scope is copied on entry and merged back by the executor only
// after a successful run; the environment scope is live.
type sandbox struct {
	vm      *goja.Runtime
	ctx     Context
	store   *vars.Store
	globals map[string]string
	removed map[string]struct{}
	tests   []report.TestResult
	logs    []LogEntry
}

func newSandbox(vm *goja.Runtime, ctx Context, store *vars.Store) *sandbox {
	return &sandbox{
		vm:      vm,
		ctx:     ctx,
		store:   store,
		globals: store.SnapshotGlobals(),
		removed: make(map[string]struct{}),
	}
}

func (s *sandbox) setup() error {
	s.setupConsole()

	s.vm.Set("btoa", func(call goja.FunctionCall) goja.Value {
		encoded := base64.StdEncoding.EncodeToString([]byte(call.Argument(0).String()))
		return s.vm.ToValue(encoded)
	})
	s.vm.Set("atob", func(call goja.FunctionCall) goja.Value {
		decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
		if err != nil {
			s.throwf("atob: invalid base64 input")
		}
		return s.vm.ToValue(string(decoded))
	})

	envAPI := s.makeEnvironmentAPI()
	globalsAPI := s.makeGlobalsAPI()

	pm := s.vm.NewObject()
	pm.Set("test", s.pmTest)
	pm.Set("expect", s.pmExpect)
	pm.Set("environment", envAPI)
	pm.Set("globals", globalsAPI)
	pm.Set("variables", s.makeVariablesAPI())
	if s.ctx.Response != nil {
		pm.Set("response", s.makeResponse(s.ctx.Response))
	}
	s.vm.Set("pm", pm)

	// Convenience globals mirroring pm.environment / pm.globals.
	s.vm.Set("environment", envAPI)
	s.vm.Set("globals", globalsAPI)

	return nil
}

func (s *sandbox) setupConsole() {
	console := s.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		console.Set(level, s.makeConsoleFunc(level))
	}
	s.vm.Set("console", console)
}

func (s *sandbox) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, consoleString(arg))
		}
		s.logs = append(s.logs, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

func consoleString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if encoded, err := json.Marshal(obj.Export()); err == nil {
			return string(encoded)
		}
	}
	return v.String()
}

// throwf raises a JS exception inside the sandbox.
func (s *sandbox) throwf(format string, args ...any) {
	panic(s.vm.NewGoError(fmt.Errorf(format, args...)))
}

// pmTest runs fn synchronously and records a named TestResult. A throw
// inside fn marks the test failed and never escapes; a timeout interrupt is
// re-raised so the whole run aborts.
func (s *sandbox) pmTest(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	result := report.TestResult{Name: name, ExecutedAt: time.Now()}

	fn, ok := goja.AssertFunction(call.Argument(1))
	if !ok {
		result.Error = "pm.test requires a function"
		s.tests = append(s.tests, result)
		return goja.Undefined()
	}

	_, err := fn(goja.Undefined())
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			panic(err)
		}
		var ex *goja.Exception
		if errors.As(err, &ex) {
			result.Error = exceptionMessage(ex)
		} else {
			result.Error = err.Error()
		}
	} else {
		result.Passed = true
	}
	s.tests = append(s.tests, result)
	return goja.Undefined()
}

func (s *sandbox) pmExpect(call goja.FunctionCall) goja.Value {
	root := s.vm.NewObject()
	root.Set("to", s.makeTo(call.Argument(0), false))
	return root
}

// makeTo builds the fluent assertion chain bound to one actual value. Each
// assertion throws a descriptive error on failure.
func (s *sandbox) makeTo(actual goja.Value, negated bool) *goja.Object {
	to := s.vm.NewObject()

	to.Set("equal", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0)
		pass := looseEqual(actual, expected)
		s.check(pass, negated,
			fmt.Sprintf("expected %s to equal %s", valueString(actual), valueString(expected)),
			fmt.Sprintf("expected %s not to equal %s", valueString(actual), valueString(expected)))
		return goja.Undefined()
	})

	to.Set("include", func(call goja.FunctionCall) goja.Value {
		needle := call.Argument(0)
		pass := includes(actual, needle)
		s.check(pass, negated,
			fmt.Sprintf("expected %s to include %s", valueString(actual), valueString(needle)),
			fmt.Sprintf("expected %s not to include %s", valueString(actual), valueString(needle)))
		return goja.Undefined()
	})

	to.Set("match", func(call goja.FunctionCall) goja.Value {
		re, err := regexFromValue(call.Argument(0))
		if err != nil {
			s.throwf("match: %v", err)
		}
		pass := re.MatchString(actual.String())
		s.check(pass, negated,
			fmt.Sprintf("expected %q to match %s", actual.String(), re.String()),
			fmt.Sprintf("expected %q not to match %s", actual.String(), re.String()))
		return goja.Undefined()
	})

	to.Set("have", s.makeHave(actual, negated))
	to.Set("be", s.makeBe(negated))

	if !negated {
		to.Set("not", s.makeTo(actual, true))
	}
	return to
}

func (s *sandbox) makeHave(actual goja.Value, negated bool) *goja.Object {
	have := s.vm.NewObject()

	have.Set("property", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if actual == nil || goja.IsUndefined(actual) || goja.IsNull(actual) {
			s.check(false, negated,
				fmt.Sprintf("expected %s to have property %q", valueString(actual), name), "")
			return goja.Undefined()
		}
		obj := actual.ToObject(s.vm)
		prop := obj.Get(name)
		exists := prop != nil && !goja.IsUndefined(prop)

		if len(call.Arguments) > 1 {
			expected := call.Argument(1)
			pass := exists && looseEqual(prop, expected)
			s.check(pass, negated,
				fmt.Sprintf("expected property %q to equal %s but got %s", name, valueString(expected), valueString(prop)),
				fmt.Sprintf("expected property %q not to equal %s", name, valueString(expected)))
			return goja.Undefined()
		}

		s.check(exists, negated,
			fmt.Sprintf("expected value to have property %q", name),
			fmt.Sprintf("expected value not to have property %q", name))
		return goja.Undefined()
	})

	have.Set("status", func(call goja.FunctionCall) goja.Value {
		resp := s.requireResponse()
		expected := int(call.Argument(0).ToInteger())
		s.check(resp.Status == expected, negated,
			fmt.Sprintf("expected response status %d but got %d", expected, resp.Status),
			fmt.Sprintf("expected response status not to be %d", expected))
		return goja.Undefined()
	})

	have.Set("header", func(call goja.FunctionCall) goja.Value {
		resp := s.requireResponse()
		name := call.Argument(0).String()
		value := resp.Header(name)

		if len(call.Arguments) > 1 {
			expected := call.Argument(1).String()
			s.check(value == expected, negated,
				fmt.Sprintf("expected header %q to equal %q but got %q", name, expected, value),
				fmt.Sprintf("expected header %q not to equal %q", name, expected))
			return goja.Undefined()
		}

		s.check(value != "", negated,
			fmt.Sprintf("expected response to have header %q", name),
			fmt.Sprintf("expected response not to have header %q", name))
		return goja.Undefined()
	})

	have.Set("jsonBody", func(call goja.FunctionCall) goja.Value {
		resp := s.requireResponse()
		body := resp.JSON()

		if len(call.Arguments) == 0 {
			s.check(body.Exists(), negated,
				"expected response body to be valid JSON",
				"expected response body not to be valid JSON")
			return goja.Undefined()
		}

		if !body.Exists() {
			s.check(false, negated, "expected response body to be valid JSON", "")
			return goja.Undefined()
		}

		path := call.Argument(0).String()
		found := body.Get(path)

		if len(call.Arguments) > 1 {
			expected := call.Argument(1)
			pass := found.Exists() && jsonValueEqual(found, expected)
			s.check(pass, negated,
				fmt.Sprintf("expected JSON body path %q to equal %s but got %s", path, valueString(expected), found.String()),
				fmt.Sprintf("expected JSON body path %q not to equal %s", path, valueString(expected)))
			return goja.Undefined()
		}

		s.check(found.Exists(), negated,
			fmt.Sprintf("expected JSON body to have path %q", path),
			fmt.Sprintf("expected JSON body not to have path %q", path))
		return goja.Undefined()
	})

	have.Set("jsonSchema", func(call goja.FunctionCall) goja.Value {
		resp := s.requireResponse()

		var schemaLoader gojsonschema.JSONLoader
		if str, ok := call.Argument(0).Export().(string); ok {
			schemaLoader = gojsonschema.NewStringLoader(str)
		} else {
			schemaLoader = gojsonschema.NewGoLoader(call.Argument(0).Export())
		}

		validation, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(resp.Body))
		if err != nil {
			s.throwf("json schema validation: %v", err)
		}

		var details []string
		for _, desc := range validation.Errors() {
			details = append(details, desc.String())
		}
		s.check(validation.Valid(), negated,
			fmt.Sprintf("expected response body to match schema: %s", strings.Join(details, "; ")),
			"expected response body not to match schema")
		return goja.Undefined()
	})

	return have
}

func (s *sandbox) makeBe(negated bool) *goja.Object {
	be := s.vm.NewObject()

	// chai-style lazy properties: asserting happens on access.
	be.DefineAccessorProperty("ok", s.vm.ToValue(func(goja.FunctionCall) goja.Value {
		resp := s.requireResponse()
		s.check(resp.IsSuccess(), negated,
			fmt.Sprintf("expected response to be successful but got status %d", resp.Status),
			fmt.Sprintf("expected response not to be successful but got status %d", resp.Status))
		return goja.Undefined()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	be.DefineAccessorProperty("error", s.vm.ToValue(func(goja.FunctionCall) goja.Value {
		resp := s.requireResponse()
		s.check(resp.IsError(), negated,
			fmt.Sprintf("expected response to be an error but got status %d", resp.Status),
			fmt.Sprintf("expected response not to be an error but got status %d", resp.Status))
		return goja.Undefined()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	return be
}

func (s *sandbox) makeResponse(resp *response.Response) *goja.Object {
	obj := s.vm.NewObject()
	obj.Set("code", resp.Status)
	obj.Set("status", resp.StatusText)
	obj.Set("responseTime", resp.DurationMs())
	obj.Set("headers", resp.Headers)
	obj.Set("text", func(goja.FunctionCall) goja.Value {
		return s.vm.ToValue(resp.BodyString())
	})
	obj.Set("json", func(goja.FunctionCall) goja.Value {
		var v any
		if err := json.Unmarshal(resp.Body, &v); err != nil {
			s.throwf("response body is not valid JSON")
		}
		return s.vm.ToValue(v)
	})
	obj.Set("to", s.makeTo(s.vm.ToValue(resp.BodyString()), false))
	return obj
}

func (s *sandbox) makeEnvironmentAPI() *goja.Object {
	obj := s.vm.NewObject()
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := s.store.Get(vars.ScopeEnvironment, call.Argument(0).String())
		if !ok {
			return goja.Undefined()
		}
		return s.vm.ToValue(v)
	})
	obj.Set("set", func(call goja.FunctionCall) goja.Value {
		s.store.Set(vars.ScopeEnvironment, call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("unset", func(call goja.FunctionCall) goja.Value {
		s.store.Unset(vars.ScopeEnvironment, call.Argument(0).String())
		return goja.Undefined()
	})
	return obj
}

// makeGlobalsAPI operates on the run-local copy; the executor merges it
// back only after a successful run.
func (s *sandbox) makeGlobalsAPI() *goja.Object {
	obj := s.vm.NewObject()
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := s.globals[call.Argument(0).String()]
		if !ok {
			return goja.Undefined()
		}
		return s.vm.ToValue(v)
	})
	obj.Set("set", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		s.globals[key] = call.Argument(1).String()
		delete(s.removed, key)
		return goja.Undefined()
	})
	obj.Set("unset", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		delete(s.globals, key)
		s.removed[key] = struct{}{}
		return goja.Undefined()
	})
	return obj
}

// makeVariablesAPI aliases the global scope for backward compatibility.
func (s *sandbox) makeVariablesAPI() *goja.Object {
	obj := s.vm.NewObject()
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := s.globals[call.Argument(0).String()]
		if !ok {
			return goja.Undefined()
		}
		return s.vm.ToValue(v)
	})
	obj.Set("set", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		s.globals[key] = call.Argument(1).String()
		delete(s.removed, key)
		return goja.Undefined()
	})
	return obj
}

func (s *sandbox) requireResponse() *response.Response {
	if s.ctx.Response == nil {
		s.throwf("no response is bound to this execution")
	}
	return s.ctx.Response
}

func (s *sandbox) check(pass, negated bool, msg, negMsg string) {
	if negated {
		if pass {
			s.throwf("%s", negMsg)
		}
		return
	}
	if !pass {
		s.throwf("%s", msg)
	}
}

func looseEqual(actual, expected goja.Value) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}
	if actual.StrictEquals(expected) {
		return true
	}
	return reflect.DeepEqual(actual.Export(), expected.Export())
}

func includes(actual, needle goja.Value) bool {
	if actual == nil {
		return false
	}
	switch target := actual.Export().(type) {
	case string:
		return strings.Contains(target, needle.String())
	case []any:
		want := needle.Export()
		for _, item := range target {
			if reflect.DeepEqual(item, want) {
				return true
			}
		}
		return false
	case map[string]any:
		_, ok := target[needle.String()]
		return ok
	default:
		return false
	}
}

// jsonValueEqual compares a gjson result against a script value, tolerating
// the int64/float64 split between goja exports and JSON numbers.
func jsonValueEqual(found gjson.Result, expected goja.Value) bool {
	want := expected.Export()
	got := found.Value()
	if reflect.DeepEqual(got, want) {
		return true
	}
	switch w := want.(type) {
	case int64:
		if g, ok := got.(float64); ok {
			return g == float64(w)
		}
	case float64:
		if g, ok := got.(float64); ok {
			return g == w
		}
	}
	return found.String() == expected.String()
}

func regexFromValue(v goja.Value) (*regexp.Regexp, error) {
	pattern := v.String()
	var flags string

	if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "RegExp" {
		pattern = obj.Get("source").String()
		flags = obj.Get("flags").String()
	}

	var prefix string
	if strings.Contains(flags, "i") {
		prefix += "(?i)"
	}
	if strings.Contains(flags, "s") {
		prefix += "(?s)"
	}
	if strings.Contains(flags, "m") {
		prefix += "(?m)"
	}
	return regexp.Compile(prefix + pattern)
}

func valueString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() != "RegExp" {
		if encoded, err := json.Marshal(obj.Export()); err == nil {
			return string(encoded)
		}
	}
	return v.String()
}
