package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/osblog/devtask/internal/config"
	"github.com/osblog/devtask/internal/django"
	"github.com/osblog/devtask/internal/errors"
)

// LookPathFunc resolves an executable name, like os/exec.LookPath.
type LookPathFunc func(file string) (string, error)

// DoctorReport holds all the data for doctor output.
type DoctorReport struct {
	ProjectRoot string
	ConfigFile  string // empty when running on defaults

	Package              string
	SettingsPath         string
	AppsPath             string
	ManagePath           string
	HooksPath            string
	DjangoSettingsModule string
	RequiredCoverage     int
	ProjectApps          []string // <package>.apps.* entries of INSTALLED_APPS

	Tools []ToolStatus
}

// ToolStatus is the resolution of one configured tool.
type ToolStatus struct {
	Name string
	Exe  string
	Path string // empty when not found
}

// Doctor implements `devtask doctor`: prints the resolved layout and tool
// availability. Missing tools are reported, not fatal. A missing manage.py
// or settings file, or a malformed INSTALLED_APPS, fails after the report
// is written.
func Doctor(ctx context.Context, p *Project, lookPath LookPathFunc) error {
	cfg := p.Cfg

	report := DoctorReport{
		ProjectRoot:      cfg.Root,
		ConfigFile:       cfg.File,
		Package:          cfg.Package,
		SettingsPath:     cfg.SettingsPath(),
		AppsPath:         cfg.AppsPath(),
		ManagePath:       cfg.ManagePath(),
		HooksPath:        cfg.HooksPath(),
		RequiredCoverage: cfg.RequiredCoverage,
	}

	if v, ok := p.DjangoEnv[config.SettingsModuleEnv]; ok {
		report.DjangoSettingsModule = v
	} else if p.LookupEnv != nil {
		if v, ok := p.LookupEnv(config.SettingsModuleEnv); ok {
			report.DjangoSettingsModule = v + " (from environment)"
		}
	}

	apps, appsErr := projectApps(p, cfg.Package)
	report.ProjectApps = apps

	report.Tools = append(report.Tools, resolveTool(lookPath, cfg.Root, "python", cfg.Python))
	for _, name := range cfg.ToolNamesSorted() {
		report.Tools = append(report.Tools, resolveTool(lookPath, cfg.Root, name, cfg.Tool(name)))
	}

	writeDoctorOutput(p.Stdout, report)

	if _, err := p.FS.Stat(report.ManagePath); err != nil {
		return errors.Wrap(errors.ENoProject, "manage.py not found at "+report.ManagePath, err)
	}
	return appsErr
}

// projectApps lists the project's own apps registered in INSTALLED_APPS.
func projectApps(p *Project, pkg string) ([]string, error) {
	path := p.Cfg.SettingsPath()
	data, err := p.FS.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ESettingsNotFound, "settings file not found at "+path, err)
	}
	list, err := django.ParseInstalledApps(string(data))
	if err != nil {
		return nil, err
	}

	prefix := django.DottedPath(pkg, "")
	var apps []string
	for _, m := range list.Apps() {
		if strings.HasPrefix(m, prefix) {
			apps = append(apps, m)
		}
	}
	return apps, nil
}

// resolveTool looks exe up on PATH, or relative to root when it contains a
// path separator.
func resolveTool(lookPath LookPathFunc, root, name, exe string) ToolStatus {
	st := ToolStatus{Name: name, Exe: exe}
	if path, err := lookPath(fromRoot(root, exe)); err == nil {
		st.Path = path
	}
	return st
}

// writeDoctorOutput writes the stable key: value output for doctor.
func writeDoctorOutput(w io.Writer, r DoctorReport) {
	configFile := r.ConfigFile
	if configFile == "" {
		configFile = "none (defaults)"
	}

	fmt.Fprintf(w, "project_root: %s\n", r.ProjectRoot)
	fmt.Fprintf(w, "config_file: %s\n", configFile)
	fmt.Fprintf(w, "package: %s\n", r.Package)
	fmt.Fprintf(w, "settings: %s\n", r.SettingsPath)
	fmt.Fprintf(w, "apps_dir: %s\n", r.AppsPath)
	fmt.Fprintf(w, "manage: %s\n", r.ManagePath)
	fmt.Fprintf(w, "hooks_dir: %s\n", r.HooksPath)
	fmt.Fprintf(w, "django_settings_module: %s\n", r.DjangoSettingsModule)
	fmt.Fprintf(w, "required_coverage: %d\n", r.RequiredCoverage)

	projectApps := "none"
	if len(r.ProjectApps) > 0 {
		projectApps = strings.Join(r.ProjectApps, ", ")
	}
	fmt.Fprintf(w, "project_apps: %s\n", projectApps)

	for _, t := range r.Tools {
		path := t.Path
		if path == "" {
			path = "missing"
		}
		fmt.Fprintf(w, "tool_%s: %s\n", t.Name, path)
	}
}
