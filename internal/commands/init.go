package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/osblog/devtask/internal/config"
	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/fs"
	"github.com/osblog/devtask/internal/scaffold"
)

// InitOpts holds options for the init command.
type InitOpts struct {
	Package string // empty keeps the default
	Force   bool
}

// InitResult holds the result of the init command for output formatting.
type InitResult struct {
	ProjectRoot  string
	ConfigState  string // "created" or "overwritten"
	HooksCreated []string
}

// Init implements `devtask init`: writes devtask.yaml in the project root
// (the nearest directory with manage.py, else cwd) and default hook
// templates that don't exist yet.
func Init(ctx context.Context, fsys fs.FS, cwd string, opts InitOpts, stdout io.Writer) error {
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}

	cfg := config.Default()
	if opts.Package != "" {
		cfg = config.ForPackage(opts.Package)
	}
	cfg.Root = root
	if err := config.Validate(cfg); err != nil {
		return err
	}

	path := filepath.Join(root, config.FileName)
	_, err = fsys.Stat(path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.EInternal, "failed to check "+config.FileName, err)
	}
	if exists && !opts.Force {
		return errors.New(errors.EConfigExists, config.FileName+" already exists; use --force to overwrite")
	}

	state := "created"
	if exists {
		state = "overwritten"
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.EInternal, "failed to render "+config.FileName, err)
	}
	if err := fs.WriteFileAtomic(fsys, path, data, 0644); err != nil {
		return errors.Wrap(errors.EWriteFailed, "failed to write "+config.FileName, err)
	}

	hooks, err := scaffold.CreateHookTemplates(fsys, cfg.HooksPath())
	if err != nil {
		return errors.Wrap(errors.EWriteFailed, "failed to create hook templates", err)
	}

	writeInitOutput(stdout, InitResult{
		ProjectRoot:  root,
		ConfigState:  state,
		HooksCreated: hooks.Created,
	})
	return nil
}

// writeInitOutput writes the stable key: value output for init.
func writeInitOutput(w io.Writer, r InitResult) {
	fmt.Fprintf(w, "project_root: %s\n", r.ProjectRoot)
	fmt.Fprintf(w, "config: %s\n", r.ConfigState)

	hooksCreated := "none"
	if len(r.HooksCreated) > 0 {
		hooksCreated = strings.Join(r.HooksCreated, ", ")
	}
	fmt.Fprintf(w, "hooks_created: %s\n", hooksCreated)
}
