// Package script executes user-authored pre-request and test scripts inside
// an isolated, time-bounded JavaScript sandbox.
//
// Each execution gets a fresh goja VM exposing only a constrained capability
// surface: console logging, the Postman-compatible pm object, btoa/atob, and
// the ECMAScript builtins (JSON, Math, Date, parseInt and friends). There is
// no filesystem, network, timer, process, or module-loading capability;
// referencing one fails inside the sandbox as an undefined-reference error.
//
// A run transitions Idle -> Running -> {Completed, TimedOut, Crashed}.
// Uncaught exceptions and timeouts are captured as ScriptErrors on the
// ExecutionResult; nothing a script does can crash the host process.
package script
