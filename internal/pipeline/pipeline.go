// Package pipeline sequences the createapp steps.
// Steps run in a fixed order, the first error stops the run, and coded
// errors are returned unchanged.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/osblog/devtask/internal/ctxlog"
	"github.com/osblog/devtask/internal/django"
	"github.com/osblog/devtask/internal/errors"
)

// CreateAppOpts contains the inputs of a createapp run.
type CreateAppOpts struct {
	Name    string // app name, a Python identifier
	Package string // project package, e.g. osblog
}

// AppState accumulates state while the steps execute.
type AppState struct {
	Name    string
	Package string
	Dotted  string // <package>.apps.<name>

	// Populated by StartApp
	AppDir string

	// Populated by RegisterApp
	SettingsPath string
	Registered   bool // false when the app was already listed

	// Populated by ConfigureApp
	AppConfigPath string
	NameLines     int
}

// AppService implements the createapp steps.
// Implementations are injected so tests can run without manage.py or formatters.
type AppService interface {
	// StartApp runs `manage.py startapp` for the new app
	StartApp(ctx context.Context, st *AppState) error

	// RegisterApp adds the app to INSTALLED_APPS
	RegisterApp(ctx context.Context, st *AppState) error

	// ConfigureApp sets the AppConfig name field to the dotted path
	ConfigureApp(ctx context.Context, st *AppState) error

	// Format runs the format task over the package
	Format(ctx context.Context, st *AppState) error
}

// Step name constants.
const (
	StepStartApp     = "StartApp"
	StepRegisterApp  = "RegisterApp"
	StepConfigureApp = "ConfigureApp"
	StepFormat       = "Format"
)

// Pipeline runs the createapp steps and reports progress to out.
type Pipeline struct {
	svc AppService
	out io.Writer
}

// NewPipeline creates a pipeline with the given service implementation.
func NewPipeline(svc AppService, out io.Writer) *Pipeline {
	return &Pipeline{svc: svc, out: out}
}

// Run validates the app name and executes, in order:
//  1. StartApp
//  2. RegisterApp
//  3. ConfigureApp
//  4. Format
//
// The returned state reflects every step that completed, even on error.
func (p *Pipeline) Run(ctx context.Context, opts CreateAppOpts) (*AppState, error) {
	st := &AppState{
		Name:    opts.Name,
		Package: opts.Package,
		Dotted:  django.DottedPath(opts.Package, opts.Name),
	}
	if err := django.ValidateAppName(opts.Name); err != nil {
		return st, err
	}

	log := ctxlog.FromContext(ctx).With("app", st.Dotted)

	steps := []struct {
		name string
		run  func(context.Context, *AppState) error
		done func(*AppState) string
	}{
		{StepStartApp, p.svc.StartApp, func(*AppState) string { return "App has been created." }},
		{StepRegisterApp, p.svc.RegisterApp, func(st *AppState) string {
			if st.Registered {
				return "Added to INSTALLED_APPS"
			}
			return "Already in INSTALLED_APPS"
		}},
		{StepConfigureApp, p.svc.ConfigureApp, func(*AppState) string { return "Configured apps.py of app" }},
		{StepFormat, p.svc.Format, nil},
	}

	for _, step := range steps {
		log.Debug("step started", "step", step.name)
		if err := step.run(ctx, st); err != nil {
			log.Debug("step failed", "step", step.name, "err", err)
			return st, wrapStepError(err, step.name)
		}
		if step.done != nil {
			fmt.Fprintln(p.out, step.done(st))
		}
	}
	return st, nil
}

// wrapStepError ensures the error is a *TaskError.
// Coded errors pass through; anything else becomes E_INTERNAL with the
// step name in details.
func wrapStepError(err error, stepName string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsTaskError(err); ok {
		return err
	}
	return errors.WrapWithDetails(
		errors.EInternal,
		fmt.Sprintf("%s failed", stepName),
		err,
		map[string]string{"step": stepName},
	)
}
