// Package commands implements the devtask tasks.
package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"

	"github.com/osblog/devtask/internal/config"
	"github.com/osblog/devtask/internal/core"
	"github.com/osblog/devtask/internal/ctxlog"
	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/exec"
	"github.com/osblog/devtask/internal/fs"
	"github.com/osblog/devtask/internal/lock"
)

// Project bundles what every task needs: the resolved configuration, the
// collaborators it runs through, and where human output goes.
type Project struct {
	Cfg    config.Config
	Runner exec.CommandRunner
	FS     fs.FS

	// DjangoEnv is the overlay for subprocesses that boot Django.
	// Computed once at startup; nil when DJANGO_SETTINGS_MODULE is already set.
	DjangoEnv map[string]string

	// LookupEnv reads the process environment; nil reads nothing.
	LookupEnv func(key string) (string, bool)

	// PTY attaches pytest and alembic revision to a pseudo-terminal.
	PTY bool

	Stdout io.Writer
	Stderr io.Writer
}

// invocation is one external command run by a task.
type invocation struct {
	tool string // config tool name, resolved through Cfg.Tool
	args []string
	dir  string // defaults to the project root
	env  map[string]string
	pty  bool
}

// run echoes "$ <command>" and runs it with output streamed to the
// terminal. A non-zero exit becomes E_TOOL_FAILED carrying the exit code.
func (p *Project) run(ctx context.Context, inv invocation) error {
	name := p.executable(inv.tool)
	command := core.FormatCommand(name, inv.args)
	fmt.Fprintf(p.Stdout, "$ %s\n", command)

	dir := inv.dir
	if dir == "" {
		dir = p.Cfg.Root
	}
	ctxlog.FromContext(ctx).Debug("running command", "command", command, "dir", dir, "pty", inv.pty)

	result, err := p.Runner.Run(ctx, name, inv.args, exec.RunOpts{
		Dir:    dir,
		Env:    inv.env,
		Stdout: p.Stdout,
		Stderr: p.Stderr,
		PTY:    inv.pty,
	})
	if err != nil {
		if stderrors.Is(err, osexec.ErrNotFound) || stderrors.Is(err, os.ErrNotExist) {
			return errors.WrapWithDetails(errors.EToolNotFound,
				fmt.Sprintf("%s not found; install it or set %s in %s", name, configKey(inv.tool), config.FileName),
				err, map[string]string{"tool": inv.tool})
		}
		return errors.Wrap(errors.EInternal, "failed to run "+command, err)
	}
	if result.ExitCode != 0 {
		return errors.ToolFailed(command, result.ExitCode)
	}
	return nil
}

// executable is the command run for tool. Paths relative to the project
// root are made absolute so they hold in any working directory.
func (p *Project) executable(tool string) string {
	exe := p.Cfg.Tool(tool)
	if tool == "python" {
		exe = p.Cfg.Python
	}
	return fromRoot(p.Cfg.Root, exe)
}

// fromRoot joins exe to root when it is a relative path rather than a
// bare name looked up on PATH.
func fromRoot(root, exe string) string {
	if strings.ContainsRune(exe, filepath.Separator) && !filepath.IsAbs(exe) {
		return filepath.Join(root, exe)
	}
	return exe
}

// configKey is the devtask.yaml key that selects tool's executable.
func configKey(tool string) string {
	if tool == "python" {
		return "python"
	}
	return "tools." + tool
}

// runAll runs invocations in order and stops at the first failure.
func (p *Project) runAll(ctx context.Context, invs []invocation) error {
	for _, inv := range invs {
		if err := p.run(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// withLock runs fn while holding the project lock.
func (p *Project) withLock(ctx context.Context, task string, fn func() error) error {
	release, err := lock.New(p.Cfg.Root).Acquire(task)
	if err != nil {
		var locked *lock.ErrLocked
		if stderrors.As(err, &locked) {
			return errors.Wrap(errors.EProjectLocked, locked.Error(), err)
		}
		return errors.Wrap(errors.EInternal, "failed to acquire project lock", err)
	}
	defer func() {
		if rerr := release(); rerr != nil {
			ctxlog.FromContext(ctx).Warn("failed to release project lock", "err", rerr)
		}
	}()
	return fn()
}
