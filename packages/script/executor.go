package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dop251/goja"

	"github.com/abdul-hamid-achik/hitscript/packages/vars"
)

// DefaultTimeout is the wall-clock budget for one script execution.
const DefaultTimeout = 5 * time.Second

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides the wall-clock budget per execution.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Executor runs scripts against a shared variable store. Each Execute call
// builds its own sandbox, so one Executor can serve concurrent invocations;
// the store is the only shared mutable state between them.
type Executor struct {
	store   *vars.Store
	timeout time.Duration
}

func NewExecutor(store *vars.Store, opts ...Option) *Executor {
	e := &Executor{
		store:   store,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs scriptText in a fresh sandbox bound to ctx. Every failure
// mode degrades to a structured result; Execute never panics and never
// hangs past the timeout.
func (e *Executor) Execute(scriptText string, ctx Context) *ExecutionResult {
	start := time.Now()
	result := &ExecutionResult{State: StateRunning}

	vm := goja.New()
	sb := newSandbox(vm, ctx, e.store)
	if err := sb.setup(); err != nil {
		result.State = StateCrashed
		result.Errors = append(result.Errors, &ScriptError{Message: fmt.Sprintf("sandbox setup: %v", err)})
		result.Duration = time.Since(start)
		return result
	}

	// Hard wall-clock bound. The watchdog interrupts the VM; goja raises
	// the interrupt as an error out of RunString even mid-loop.
	timer := time.NewTimer(e.timeout)
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt(fmt.Sprintf("script execution timed out after %s", e.timeout))
		case <-done:
		}
	}()

	err := runGuarded(vm, scriptText)

	close(done)
	timer.Stop()

	result.Duration = time.Since(start)
	result.Tests = sb.tests
	result.Logs = sb.logs
	result.Variables = sb.globals

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			result.State = StateTimedOut
			result.Errors = append(result.Errors, &ScriptError{
				Message: fmt.Sprintf("script execution timed out after %s", e.timeout),
				Timeout: true,
			})
			return result
		}

		result.State = StateCrashed
		result.Errors = append(result.Errors, scriptErrorFrom(err))
		return result
	}

	result.State = StateCompleted
	result.Success = true

	// Only a completed run merges its local global mutations back.
	e.store.MergeGlobals(sb.globals)
	for key := range sb.removed {
		e.store.Unset(vars.ScopeGlobal, key)
	}
	return result
}

// runGuarded executes the script and converts panics escaping from Go
// callbacks (e.g. an interrupt firing inside a pm.test body) back into
// errors.
func runGuarded(vm *goja.Runtime, scriptText string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
				return
			}
			err = fmt.Errorf("script panic: %v", r)
		}
	}()
	_, err = vm.RunString(scriptText)
	return err
}

var linePattern = regexp.MustCompile(`<eval>:(\d+):\d+`)

func scriptErrorFrom(err error) *ScriptError {
	se := &ScriptError{Message: err.Error()}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		se.Message = exceptionMessage(ex)
		se.Stack = ex.String()
	}

	if m := linePattern.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			se.Line = n
		}
	} else if se.Stack != "" {
		if m := linePattern.FindStringSubmatch(se.Stack); m != nil {
			if n, convErr := strconv.Atoi(m[1]); convErr == nil {
				se.Line = n
			}
		}
	}
	return se
}

// exceptionMessage extracts the thrown value's message, unwrapping Error
// objects so `throw new Error("x")` reports "x".
func exceptionMessage(ex *goja.Exception) string {
	value := ex.Value()
	if value == nil {
		return ex.Error()
	}
	if obj, ok := value.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	return value.String()
}
