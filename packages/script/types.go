package script

import (
	"time"

	"github.com/abdul-hamid-achik/hitscript/packages/report"
	"github.com/abdul-hamid-achik/hitscript/packages/response"
)

// ContextType distinguishes pre-request scripts from test scripts.
type ContextType int

const (
	TypePreRequest ContextType = iota
	TypeTest
)

func (t ContextType) String() string {
	switch t {
	case TypePreRequest:
		return "pre-request"
	case TypeTest:
		return "test"
	default:
		return "unknown"
	}
}

// Context is the immutable input to one sandbox run. Response is only set
// for test scripts; the sandbox reads it and never writes.
type Context struct {
	Type     ContextType
	Response *response.Response
}

// State tracks one execution through its lifecycle. All states after
// Running are terminal.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateTimedOut
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// LogEntry is one console.* call captured from the sandbox.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ScriptError is a fatal failure of one execution: an uncaught exception, a
// syntax error, or a timeout.
type ScriptError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Line    int    `json:"line,omitempty"`
	Timeout bool   `json:"timeout,omitempty"`
}

func (e *ScriptError) Error() string {
	return e.Message
}

// ExecutionResult is the structured outcome of one sandbox run. Partial
// tests and logs survive a mid-script failure.
type ExecutionResult struct {
	Success   bool
	State     State
	Tests     []report.TestResult
	Variables map[string]string
	Logs      []LogEntry
	Errors    []*ScriptError
	Duration  time.Duration
}
