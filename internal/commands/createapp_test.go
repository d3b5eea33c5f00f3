package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/exec"
	"github.com/osblog/devtask/internal/pipeline"
)

const settingsPy = `INSTALLED_APPS = [
    # apps
    "django.contrib.admin",
]
`

const generatedAppsPy = `from django.apps import AppConfig


class CommentsConfig(AppConfig):
    default_auto_field = "django.db.models.BigAutoField"
    name = "comments"
`

// setupDjangoProject lays out manage.py and settings, and makes startapp
// create apps.py the way Django does.
func setupDjangoProject(t *testing.T, p *Project, runner *fakeRunner) {
	t.Helper()
	writeFile(t, p.Cfg.ManagePath(), "#!/usr/bin/env python\n")
	writeFile(t, p.Cfg.SettingsPath(), settingsPy)

	runner.respond = func(c call) (exec.CmdResult, error) {
		if len(c.Args) == 3 && c.Args[1] == "startapp" {
			writeFile(t, filepath.Join(c.Opts.Dir, c.Args[2], "apps.py"), generatedAppsPy)
		}
		return exec.CmdResult{}, nil
	}
}

func TestCreateApp(t *testing.T) {
	p, runner, out := newTestProject(t)
	setupDjangoProject(t, p, runner)

	if err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"}); err != nil {
		t.Fatalf("CreateApp() error = %v", err)
	}

	start := runner.calls[0]
	if start.Name != "python3" {
		t.Errorf("startapp ran with %q, want python3", start.Name)
	}
	if diff := cmp.Diff([]string{p.Cfg.ManagePath(), "startapp", "comments"}, start.Args); diff != "" {
		t.Errorf("startapp args mismatch (-want +got):\n%s", diff)
	}
	if start.Opts.Dir != p.Cfg.AppsPath() {
		t.Errorf("startapp dir = %q, want %q", start.Opts.Dir, p.Cfg.AppsPath())
	}
	if diff := cmp.Diff(djangoEnv, start.Opts.Env); diff != "" {
		t.Errorf("startapp env mismatch (-want +got):\n%s", diff)
	}
	if len(runner.calls) != 4 || runner.calls[3].Name != "black" {
		t.Errorf("format should follow startapp, got %v", runner.argv())
	}

	wantSettings := "INSTALLED_APPS = [\n    # apps\n    \"osblog.apps.comments\",\n    \"django.contrib.admin\",\n]\n"
	if got := readFile(t, p.Cfg.SettingsPath()); got != wantSettings {
		t.Errorf("settings = %q, want %q", got, wantSettings)
	}

	wantApps := `from django.apps import AppConfig


class CommentsConfig(AppConfig):
    default_auto_field = "django.db.models.BigAutoField"
    name = 'osblog.apps.comments'
`
	if got := readFile(t, p.Cfg.AppConfigPath("comments")); got != wantApps {
		t.Errorf("apps.py = %q, want %q", got, wantApps)
	}

	for _, msg := range []string{"App has been created.\n", "Added to INSTALLED_APPS\n", "Configured apps.py of app\n"} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("output missing %q:\n%s", msg, out.String())
		}
	}
}

func TestCreateApp_RelativePython(t *testing.T) {
	p, runner, _ := newTestProject(t)
	setupDjangoProject(t, p, runner)
	p.Cfg.Python = ".venv/bin/python"

	if err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"}); err != nil {
		t.Fatalf("CreateApp() error = %v", err)
	}

	start := runner.calls[0]
	if want := filepath.Join(p.Cfg.Root, ".venv", "bin", "python"); start.Name != want {
		t.Errorf("startapp ran with %q, want %q", start.Name, want)
	}
	if start.Opts.Dir != p.Cfg.AppsPath() {
		t.Errorf("startapp dir = %q, want %q", start.Opts.Dir, p.Cfg.AppsPath())
	}
}

// The interpreter path must resolve from the project root even though
// startapp runs inside the apps directory.
func TestCreateApp_RelativePythonRealRunner(t *testing.T) {
	p, _, _ := newTestProject(t)
	writeFile(t, p.Cfg.ManagePath(), "")
	writeFile(t, p.Cfg.SettingsPath(), settingsPy)

	// A fake interpreter that records its working directory and arguments.
	script := "#!/bin/sh\npwd > \"$0.log\"\necho \"$@\" >> \"$0.log\"\n"
	python := filepath.Join(p.Cfg.Root, ".venv", "bin", "python")
	writeFile(t, python, script)
	if err := os.Chmod(python, 0755); err != nil {
		t.Fatal(err)
	}
	p.Cfg.Python = ".venv/bin/python"
	p.Runner = exec.NewRealRunner()

	svc := &appService{p: p}
	st := &pipeline.AppState{Name: "comments", Package: "osblog"}
	if err := svc.StartApp(context.Background(), st); err != nil {
		t.Fatalf("StartApp() error = %v", err)
	}

	log := readFile(t, python+".log")
	if !strings.Contains(log, "startapp comments") {
		t.Errorf("interpreter log = %q", log)
	}
}

func TestCreateApp_AlreadyRegistered(t *testing.T) {
	p, runner, out := newTestProject(t)
	setupDjangoProject(t, p, runner)
	writeFile(t, p.Cfg.SettingsPath(), "INSTALLED_APPS = [\n    # apps\n    \"osblog.apps.comments\",\n]\n")

	if err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"}); err != nil {
		t.Fatalf("CreateApp() error = %v", err)
	}
	if !strings.Contains(out.String(), "Already in INSTALLED_APPS\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCreateApp_AppExists(t *testing.T) {
	p, runner, _ := newTestProject(t)
	setupDjangoProject(t, p, runner)
	if err := os.MkdirAll(p.Cfg.AppDir("comments"), 0755); err != nil {
		t.Fatal(err)
	}

	err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"})
	if errors.GetCode(err) != errors.EAppExists {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EAppExists)
	}
	if len(runner.calls) != 0 {
		t.Errorf("nothing should run, got %v", runner.argv())
	}
	if got := readFile(t, p.Cfg.SettingsPath()); got != settingsPy {
		t.Error("settings should be untouched")
	}
}

func TestCreateApp_InvalidName(t *testing.T) {
	p, runner, _ := newTestProject(t)
	setupDjangoProject(t, p, runner)

	err := CreateApp(context.Background(), p, CreateAppOpts{Name: "class"})
	if errors.GetCode(err) != errors.EInvalidAppName {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EInvalidAppName)
	}
	if len(runner.calls) != 0 {
		t.Errorf("nothing should run, got %v", runner.argv())
	}
}

func TestCreateApp_StartAppFails(t *testing.T) {
	p, runner, _ := newTestProject(t)
	setupDjangoProject(t, p, runner)
	runner.respond = func(call) (exec.CmdResult, error) { return exec.CmdResult{ExitCode: 1}, nil }

	err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"})
	if errors.GetCode(err) != errors.EToolFailed {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EToolFailed)
	}
	if got := readFile(t, p.Cfg.SettingsPath()); got != settingsPy {
		t.Error("settings should be untouched when startapp fails")
	}
}

func TestCreateApp_MarkerlessSettings(t *testing.T) {
	p, runner, _ := newTestProject(t)
	setupDjangoProject(t, p, runner)
	writeFile(t, p.Cfg.SettingsPath(), "DEBUG = True\n")

	err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"})
	if errors.GetCode(err) != errors.ESettingsMarkerMissing {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ESettingsMarkerMissing)
	}
	if got := readFile(t, p.Cfg.SettingsPath()); got != "DEBUG = True\n" {
		t.Errorf("settings changed: %q", got)
	}
}

func TestCreateApp_MissingManage(t *testing.T) {
	p, runner, _ := newTestProject(t)

	err := CreateApp(context.Background(), p, CreateAppOpts{Name: "comments"})
	if errors.GetCode(err) != errors.ENoProject {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ENoProject)
	}
	if len(runner.calls) != 0 {
		t.Errorf("nothing should run, got %v", runner.argv())
	}
}
