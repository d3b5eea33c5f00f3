// Package exec provides a stub-friendly interface for running external commands.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// CmdResult holds the result of a command execution.
// Stdout and Stderr are empty when the corresponding stream was redirected.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunOpts holds optional parameters for command execution.
type RunOpts struct {
	Dir string            // working directory (optional)
	Env map[string]string // extra environment variables (overlay)

	// Stdout and Stderr stream the child's output instead of capturing it.
	Stdout io.Writer
	Stderr io.Writer

	// PTY runs the child on a pseudo-terminal whose output goes to Stdout.
	// Ignored when Stdout is nil.
	PTY bool
}

// CommandRunner is the interface for running external commands.
// Implementations must be safe for stubbing in tests.
type CommandRunner interface {
	// Run executes a command and returns the result.
	// Returns CmdResult with ExitCode set if the process exits (even non-zero).
	// Returns error only for execution failures (binary not found, ctx canceled, io failure).
	Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error)
}

// RealRunner is the production implementation of CommandRunner using os/exec.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes the command, streaming or capturing stdout/stderr per opts.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts RunOpts) (CmdResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	if opts.PTY && opts.Stdout != nil {
		return runPTY(ctx, cmd, opts.Stdout)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	err := cmd.Run()

	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	return finish(ctx, result, err)
}

// runPTY starts cmd on a pseudo-terminal and copies its combined output to w.
// The pty is sized like the controlling terminal when there is one.
func runPTY(ctx context.Context, cmd *exec.Cmd, w io.Writer) (CmdResult, error) {
	var size *pty.Winsize
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if cols, rows, err := term.GetSize(fd); err == nil {
			size = &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
		}
	}

	f, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return CmdResult{}, err
	}
	defer f.Close()

	// Linux reports EIO on the master once the child closes its side.
	if _, copyErr := io.Copy(w, f); copyErr != nil && !errors.Is(copyErr, syscall.EIO) {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return CmdResult{}, copyErr
	}

	return finish(ctx, CmdResult{}, cmd.Wait())
}

func finish(ctx context.Context, result CmdResult, err error) (CmdResult, error) {
	if err == nil {
		result.ExitCode = 0
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Process ran but exited non-zero
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	// Binary not found, io failure, etc.
	return result, err
}
