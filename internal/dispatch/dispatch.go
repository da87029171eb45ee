// Package dispatch resolves (engine, action) pairs to their configured
// commands and executes them.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/rds/internal/models"
	"github.com/zulandar/rds/internal/notify"
	"github.com/zulandar/rds/internal/registry"
)

// DefaultStatusTimeout bounds status probes; they back dashboard polling
// and must stay fast.
const DefaultStatusTimeout = 5 * time.Second

// stderrTailBytes is how much trailing stderr an ActionFailedError keeps.
const stderrTailBytes = 512

// UnknownActionError reports an action the engine does not provide.
type UnknownActionError struct {
	Engine    string
	Action    string
	Available []string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("dispatch: engine %s has no action %q (available: %s)",
		e.Engine, e.Action, strings.Join(e.Available, ", "))
}

// ActionFailedError reports a command that ran but exited non-zero.
type ActionFailedError struct {
	Engine     string
	Action     string
	ExitCode   int
	StderrTail string
}

func (e *ActionFailedError) Error() string {
	msg := fmt.Sprintf("dispatch: %s %s failed with exit code %d", e.Engine, e.Action, e.ExitCode)
	if e.StderrTail != "" {
		msg += ": " + e.StderrTail
	}
	return msg
}

// Auditor records completed operations. Implemented by store.Store.
type Auditor interface {
	Append(rec models.OpRecord) error
}

// Result carries the output of a successful dispatch.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// EngineResult is one engine's outcome within a DispatchAll batch.
type EngineResult struct {
	Engine string
	Result Result
	Err    error
}

// Dispatcher routes actions to engine capability commands.
type Dispatcher struct {
	reg      *registry.Registry
	runner   Runner
	audit    Auditor // optional
	notifier notify.Notifier
}

// Opts holds optional Dispatcher collaborators.
type Opts struct {
	Runner   Runner          // defaults to ExecRunner
	Audit    Auditor         // nil disables audit records
	Notifier notify.Notifier // nil disables failure notifications
}

// New creates a Dispatcher over the given registry.
func New(reg *registry.Registry, opts Opts) (*Dispatcher, error) {
	if reg == nil {
		return nil, fmt.Errorf("dispatch: registry is required")
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Dispatcher{reg: reg, runner: runner, audit: opts.Audit, notifier: notifier}, nil
}

// Resolve returns the argv and environment for an (engine, action) pair
// without executing it. Extra args are appended to the configured argv.
func (d *Dispatcher) Resolve(engine, action string, args ...string) ([]string, []string, error) {
	e, err := d.reg.Get(engine)
	if err != nil {
		return nil, nil, err
	}
	argv, ok := e.Capabilities[action]
	if !ok {
		return nil, nil, &UnknownActionError{Engine: engine, Action: action, Available: e.Actions()}
	}
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("dispatch: engine %s action %q has no command configured", engine, action)
	}
	full := make([]string, 0, len(argv)+len(args))
	full = append(full, argv...)
	full = append(full, args...)
	return full, envPairs(e.ExtraEnv), nil
}

// Dispatch resolves and runs one action against one engine. The command's
// exit status is mapped to an ActionFailedError when non-zero.
func (d *Dispatcher) Dispatch(ctx context.Context, engine, action string, args ...string) (Result, error) {
	argv, env, err := d.Resolve(engine, action, args...)
	if err != nil {
		return Result{}, err
	}

	spec := ExecSpec{Argv: argv, Env: env}
	if action == "status" {
		spec.Timeout = DefaultStatusTimeout
	}

	started := time.Now()
	out, err := d.runner.Run(ctx, spec)
	res := Result{Stdout: out.Stdout, Stderr: out.Stderr, Duration: time.Since(started)}

	switch {
	case err != nil:
		err = fmt.Errorf("dispatch: %s %s: %w", engine, action, err)
	case out.ExitCode != 0:
		err = &ActionFailedError{
			Engine:     engine,
			Action:     action,
			ExitCode:   out.ExitCode,
			StderrTail: tail(out.Stderr, stderrTailBytes),
		}
	}

	d.record(engine, action, started, res.Duration, err)
	if err != nil {
		// Status probes fail routinely during polling; only real actions
		// are worth a notification.
		if action != "status" {
			d.post(ctx, engine, action, err)
		}
		return res, err
	}
	return res, nil
}

// DispatchAll applies one action to every registered engine in
// registration order. Failures are collected per engine; the batch always
// runs to completion.
func (d *Dispatcher) DispatchAll(ctx context.Context, action string, args ...string) []EngineResult {
	engines := d.reg.List()
	results := make([]EngineResult, 0, len(engines))
	for _, e := range engines {
		res, err := d.Dispatch(ctx, e.Name, action, args...)
		results = append(results, EngineResult{Engine: e.Name, Result: res, Err: err})
	}
	return results
}

// Status probes one engine and returns a short state string. Mirrors
// `systemctl is-active` semantics: first stdout line, "inactive" when the
// probe exits non-zero with empty output, "unknown" when it cannot run.
func (d *Dispatcher) Status(ctx context.Context, engine string) string {
	res, err := d.Dispatch(ctx, engine, "status")
	out := firstLine(res.Stdout)
	if err != nil {
		if _, failed := err.(*ActionFailedError); failed {
			if out != "" {
				return out
			}
			return "inactive"
		}
		return "unknown"
	}
	if out == "" {
		return "inactive"
	}
	return out
}

// record writes an audit row. Audit failures never fail the action.
func (d *Dispatcher) record(engine, action string, started time.Time, dur time.Duration, opErr error) {
	if d.audit == nil || action == "status" {
		return
	}
	rec := models.OpRecord{
		Engine:     engine,
		Action:     action,
		Status:     models.OpStatusOK,
		StartedAt:  started,
		DurationMs: dur.Milliseconds(),
	}
	if opErr != nil {
		rec.Status = models.OpStatusFailed
		rec.Detail = opErr.Error()
	}
	_ = d.audit.Append(rec)
}

// post sends a failure notification, best-effort.
func (d *Dispatcher) post(ctx context.Context, engine, action string, opErr error) {
	_ = d.notifier.Post(ctx, notify.Event{
		Title:    "Engine action failed: " + engine,
		Body:     opErr.Error(),
		Severity: notify.SeverityError,
		Fields:   []notify.Field{{Name: "action", Value: action}},
	})
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
