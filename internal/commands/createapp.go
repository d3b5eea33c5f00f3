package commands

import (
	"context"
	"os"

	"github.com/osblog/devtask/internal/ctxlog"
	"github.com/osblog/devtask/internal/django"
	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/pipeline"
)

// CreateAppOpts holds options for the createapp task.
type CreateAppOpts struct {
	Name string
}

// CreateApp implements `devtask createapp`: startapp, register the app in
// INSTALLED_APPS, set its AppConfig name, then format the package.
func CreateApp(ctx context.Context, p *Project, opts CreateAppOpts) error {
	return p.withLock(ctx, "createapp", func() error {
		_, err := pipeline.NewPipeline(&appService{p: p}, p.Stdout).Run(ctx, pipeline.CreateAppOpts{
			Name:    opts.Name,
			Package: p.Cfg.Package,
		})
		return err
	})
}

// appService runs the createapp steps against the real project.
type appService struct {
	p *Project
}

func (s *appService) StartApp(ctx context.Context, st *pipeline.AppState) error {
	cfg := s.p.Cfg
	st.AppDir = cfg.AppDir(st.Name)

	if _, err := s.p.FS.Stat(st.AppDir); err == nil {
		return errors.NewWithDetails(errors.EAppExists, "app directory already exists: "+st.AppDir,
			map[string]string{"app_dir": st.AppDir})
	} else if !os.IsNotExist(err) {
		return errors.Wrap(errors.EInternal, "failed to check "+st.AppDir, err)
	}

	if _, err := s.p.FS.Stat(cfg.ManagePath()); err != nil {
		return errors.Wrap(errors.ENoProject, "manage.py not found at "+cfg.ManagePath(), err)
	}
	if err := s.p.FS.MkdirAll(cfg.AppsPath(), 0755); err != nil {
		return errors.Wrap(errors.EWriteFailed, "failed to create "+cfg.AppsPath(), err)
	}

	return s.p.run(ctx, invocation{
		tool: "python",
		args: []string{cfg.ManagePath(), "startapp", st.Name},
		dir:  cfg.AppsPath(),
		env:  s.p.DjangoEnv,
	})
}

func (s *appService) RegisterApp(ctx context.Context, st *pipeline.AppState) error {
	res, err := django.RegisterApp(s.p.FS, s.p.Cfg.SettingsPath(), st.Package, st.Name)
	if err != nil {
		return err
	}
	st.SettingsPath = res.Path
	st.Registered = res.Changed
	ctxlog.FromContext(ctx).Debug("settings updated", "path", res.Path, "changed", res.Changed)
	return nil
}

func (s *appService) ConfigureApp(ctx context.Context, st *pipeline.AppState) error {
	res, err := django.ConfigureApp(s.p.FS, s.p.Cfg.AppConfigPath(st.Name), st.Package, st.Name)
	if err != nil {
		return err
	}
	st.AppConfigPath = res.Path
	st.NameLines = res.Replaced
	ctxlog.FromContext(ctx).Debug("app config updated", "path", res.Path, "replaced", res.Replaced)
	return nil
}

func (s *appService) Format(ctx context.Context, _ *pipeline.AppState) error {
	return Format(ctx, s.p)
}
