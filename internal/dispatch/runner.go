package dispatch

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ExecSpec describes one subprocess invocation.
type ExecSpec struct {
	Argv    []string
	Env     []string      // KEY=VALUE pairs merged over the inherited environment
	Timeout time.Duration // 0 = no deadline beyond ctx
}

// ExecResult carries the captured output and exit status of a subprocess.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes subprocess invocations. It is an interface so tests can
// substitute a recording mock.
type Runner interface {
	Run(ctx context.Context, spec ExecSpec) (ExecResult, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the spec's argv, capturing stdout and stderr. A non-zero
// exit is not an error here; it is reported through ExitCode and judged by
// the caller. The returned error covers spawn failures and context
// cancellation only.
func (ExecRunner) Run(ctx context.Context, spec ExecSpec) (ExecResult, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Env = append(os.Environ(), spec.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	err := cmd.Run()
	res := ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		// A context kill also surfaces as an ExitError; report the
		// cancellation, not the signal exit.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// envPairs flattens an env map into sorted-independent KEY=VALUE pairs.
func envPairs(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	pairs := make([]string, 0, len(extra))
	for k, v := range extra {
		pairs = append(pairs, k+"="+v)
	}
	return pairs
}
