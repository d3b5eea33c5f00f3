package commands

import (
	"context"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/git"
	"github.com/osblog/devtask/internal/scaffold"
)

// HooksOpts holds options for the hooks task.
type HooksOpts struct {
	// InvokePath replaces {invoke_path} in templates: the directory holding
	// the devtask executable.
	InvokePath string
}

// Hooks implements `devtask hooks`: every template in hooks_dir is rendered
// into the repository's git hooks directory and made executable.
func Hooks(ctx context.Context, p *Project, opts HooksOpts) error {
	if opts.InvokePath == "" {
		return errors.New(errors.EInternal, "devtask executable directory is unknown")
	}

	repo, err := git.Open(ctx, p.Runner, p.Cfg.Tool("git"), p.Cfg.Root)
	if err != nil {
		return err
	}
	dst, err := repo.HooksDir(ctx, p.Runner)
	if err != nil {
		return err
	}

	return p.withLock(ctx, "hooks", func() error {
		_, err := scaffold.InstallHooks(p.FS, p.Cfg.HooksPath(), dst, opts.InvokePath, p.Stdout)
		return err
	})
}
