// Package git locates the repository around a project and its hooks directory.
package git

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/exec"
)

// Repo describes the git repository a project lives in.
type Repo struct {
	Root string // absolute, clean
	Git  string // git executable used for queries
}

// Open discovers the repository containing cwd with `git rev-parse --show-toplevel`.
//
// Returns E_NO_REPO if cwd is empty, git cannot run, cwd is outside a
// repository, or git prints something other than a single path.
func Open(ctx context.Context, cr exec.CommandRunner, gitExe, cwd string) (Repo, error) {
	if cwd == "" {
		return Repo{}, errors.New(errors.ENoRepo, "working directory is empty")
	}
	if gitExe == "" {
		gitExe = "git"
	}

	out, err := revParse(ctx, cr, gitExe, cwd, "--show-toplevel")
	if err != nil {
		return Repo{}, err
	}
	return Repo{Root: absFrom(cwd, out), Git: gitExe}, nil
}

// HooksDir resolves the directory git runs hooks from. It honours
// core.hooksPath and linked worktrees via `git rev-parse --git-path hooks`.
func (r Repo) HooksDir(ctx context.Context, cr exec.CommandRunner) (string, error) {
	out, err := revParse(ctx, cr, r.Git, r.Root, "--git-path", "hooks")
	if err != nil {
		return "", err
	}
	return absFrom(r.Root, out), nil
}

func revParse(ctx context.Context, cr exec.CommandRunner, gitExe, dir string, args ...string) (string, error) {
	argv := append([]string{"rev-parse"}, args...)
	result, err := cr.Run(ctx, gitExe, argv, exec.RunOpts{Dir: dir})
	if err != nil {
		return "", errors.Wrap(errors.ENoRepo, "failed to run git rev-parse", err)
	}
	if result.ExitCode != 0 {
		return "", errors.New(errors.ENoRepo, "not inside a git repository")
	}

	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		return "", errors.New(errors.ENoRepo, "git rev-parse returned empty output")
	}
	if strings.Contains(out, "\n") {
		return "", errors.New(errors.ENoRepo, "git rev-parse returned unexpected multi-line output")
	}
	return out, nil
}

// absFrom resolves p against base when git printed a relative path.
func absFrom(base, p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p)
}
