// Package hostexec runs external host tools as fallible operations.
//
// Every external command the harness depends on (disk image tools,
// privileged ip invocations) goes through Run, which turns a non-zero
// exit into a structured error carrying the captured output.
package hostexec

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os/exec"
	"strings"
)

// ErrToolFailed indicates an external tool exited non-zero or could not
// be started at all.
var ErrToolFailed = errors.New("external tool failed")

// Context carries the environment and command prefix (e.g. "sudo")
// applied to every command executed through it.
type Context interface {
	Envs() map[string]string
	PrependCmd() []string
}

// New creates a Context with the given environment variables and command
// prefix. Both may be nil.
func New(envs map[string]string, prependCmd []string) Context {
	return &execContext{
		envs:       envs,
		prependCmd: prependCmd,
	}
}

// Sudo returns a Context that prefixes every command with sudo.
// Privileged networking operations use this.
func Sudo() Context {
	return New(nil, []string{"sudo"})
}

type execContext struct {
	envs       map[string]string
	prependCmd []string
}

// Envs implements Context.
func (c *execContext) Envs() map[string]string {
	out := make(map[string]string, len(c.envs))
	maps.Copy(out, c.envs)
	return out
}

// PrependCmd implements Context.
func (c *execContext) PrependCmd() []string {
	out := make([]string, len(c.prependCmd))
	copy(out, c.prependCmd)
	return out
}

// Result is the structured outcome of one external tool invocation.
type Result struct {
	// Cmd is the full command line that was executed, for error reporting.
	Cmd string
	// ExitCode is the tool's exit code. -1 if the process never started.
	ExitCode int
	// Output is the combined stdout and stderr of the tool.
	Output []byte
}

// Run executes an external tool and waits for it to exit. A non-zero exit
// or a spawn failure is returned as an error wrapping ErrToolFailed, with
// the captured output folded into the message.
func Run(ctx context.Context, execCtx Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	ApplyToCmd(execCtx, cmd)

	res := Result{Cmd: strings.Join(cmd.Args, " ")}

	output, err := cmd.CombinedOutput()
	res.Output = output
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		res.ExitCode = -1
	}
	if err != nil {
		return res, fmt.Errorf(
			"%w: %s: %v, output: %s",
			ErrToolFailed, res.Cmd, err, string(output),
		)
	}

	return res, nil
}

// ApplyToCmd applies the Context's environment and command prefix to an
// already constructed *exec.Cmd. Used for long-running processes that are
// started with Start rather than run to completion.
func ApplyToCmd(execCtx Context, cmd *exec.Cmd) {
	if execCtx == nil {
		return
	}

	for k, v := range execCtx.Envs() {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	prependCmd := execCtx.PrependCmd()
	if len(prependCmd) == 0 {
		return
	}

	tmpCmd := exec.Command(prependCmd[0], prependCmd[1:]...)
	cmd.Path = tmpCmd.Path
	cmd.Args = append(tmpCmd.Args, cmd.Args...)
}

// LookupTools returns an error naming every tool in the list that cannot
// be found in PATH. Used as a preflight check before a scenario starts.
func LookupTools(tools ...string) error {
	var missing []string
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
	}
	return nil
}
