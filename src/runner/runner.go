// Package runner executes external analysis tools. Arguments are passed
// to the process directly, never through a shell, so no quoting is needed.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sofmeright/cpdstage/src/build"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 10 * time.Minute

// waitDelay caps how long output pipes are drained after the process is killed.
const waitDelay = 5 * time.Second

// Executor implements build.Executor on top of os/exec.
type Executor struct {
	Dir     string        // working directory for spawned processes; empty = current
	Timeout time.Duration // 0 = DefaultTimeout, negative = none
	Log     build.Logger
}

var _ build.Executor = (*Executor)(nil)

// ExecuteCommand runs name with args. A non-zero exit, a spawn failure or a
// timeout all report false; captured output goes to the debug log.
func (e *Executor) ExecuteCommand(ctx context.Context, name string, args ...string) bool {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- argv assembled by plugins
	cmd.Dir = e.Dir
	cmd.WaitDelay = waitDelay
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.debug("executing: " + CommandLine(name, args...))
	err := cmd.Run()

	if out := strings.TrimSpace(stdout.String()); out != "" {
		e.debug(out)
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		e.debug(out)
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			e.warn(fmt.Sprintf("%s: timed out", name))
		case errors.As(err, &exitErr):
			e.debug(fmt.Sprintf("%s: exit code %d", name, exitErr.ExitCode()))
		default:
			e.warn(fmt.Sprintf("%s: %v", name, err))
		}
		return false
	}
	return true
}

// Output runs name with args and returns stdout and stderr combined.
func (e *Executor) Output(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- argv assembled by plugins
	cmd.Dir = e.Dir
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", name, err)
	}
	return string(out), nil
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (e *Executor) debug(msg string) {
	if e.Log != nil {
		e.Log.LogDebug(msg)
	}
}

func (e *Executor) warn(msg string) {
	if e.Log != nil {
		e.Log.LogWarning(msg)
	}
}

// CommandLine renders argv for display, single-quoting arguments that
// contain whitespace or shell metacharacters.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quote(name))
	for _, a := range args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
