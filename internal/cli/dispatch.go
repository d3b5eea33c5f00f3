// Package cli handles command-line parsing and dispatch for devtask.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/osblog/devtask/internal/commands"
	"github.com/osblog/devtask/internal/config"
	"github.com/osblog/devtask/internal/ctxlog"
	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/exec"
	"github.com/osblog/devtask/internal/fs"
	"github.com/osblog/devtask/internal/git"
	"github.com/osblog/devtask/internal/version"
)

const usageText = `devtask - development tasks for the osblog Django project

usage: devtask [--verbose] <command> [options]

commands:
  format          run autoflake, isort and black over the package
  check           check style (flake8, isort, black) and typing (mypy)
  createapp       create a Django app and register it in INSTALLED_APPS
  test            run pytest
  makemigrations  autogenerate an alembic revision
  migrate         upgrade the database to the latest revision
  hooks           install git hooks from the hooks directory
  init            write devtask.yaml and default hook templates
  doctor          show the resolved project layout and tools

options:
  -h, --help      show this help
  -v, --version   show version
  --verbose       log diagnostics to stderr (also DEVTASK_VERBOSE=1)

run 'devtask <command> --help' for command-specific help.
`

const formatUsageText = `usage: devtask format

run autoflake, isort and black over the package, in that order.

options:
  -h, --help    show this help
`

const checkUsageText = `usage: devtask check [options]

check style with flake8, isort and black, and typing with mypy.
stops at the first failing checker.

options:
  --style=<bool>    check style (default true)
  --typing=<bool>   check typing (default true)
  --no-style        skip the style checks
  --no-typing       skip the typing check
  -h, --help        show this help
`

const createappUsageText = `usage: devtask createapp --name <name>

create <apps_dir>/<name> with manage.py startapp, add it to INSTALLED_APPS,
point its AppConfig at <package>.apps.<name>, then format the package.

options:
  --name <name>   app name, a Python identifier
  -h, --help      show this help

examples:
  devtask createapp --name comments
`

const testUsageText = `usage: devtask test [options]

run pytest with DJANGO_SETTINGS_MODULE defaulted to <package>.settings.

options:
  --coverage    fail when coverage is below required_coverage
  -h, --help    show this help
`

const makemigrationsUsageText = `usage: devtask makemigrations --message <message>

run alembic revision --autogenerate from the project root.

options:
  -m, --message <message>   revision message
  -h, --help                show this help

examples:
  devtask makemigrations -m "add comments"
`

const migrateUsageText = `usage: devtask migrate

run alembic upgrade head from the project root.

options:
  -h, --help    show this help
`

const hooksUsageText = `usage: devtask hooks

copy every file in the hooks directory into the git hooks directory,
replacing {invoke_path} with the directory holding devtask.

options:
  -h, --help    show this help
`

const initUsageText = `usage: devtask init [options]

write devtask.yaml and default hook templates in the project root.

options:
  --package <name>   project package (default osblog)
  --force            overwrite an existing devtask.yaml
  -h, --help         show this help
`

const doctorUsageText = `usage: devtask doctor

show the resolved project layout and where each tool resolves to.

options:
  -h, --help    show this help
`

// System is the process surface the CLI depends on.
type System struct {
	Getwd      func() (string, error)
	LookupEnv  func(key string) (string, bool)
	Executable func() (string, error)
	LookPath   func(file string) (string, error)
	IsTerminal func() bool
	Runner     exec.CommandRunner
	FS         fs.FS
}

// OSSystem returns the System backed by the running process.
func OSSystem() System {
	return System{
		Getwd:      os.Getwd,
		LookupEnv:  os.LookupEnv,
		Executable: os.Executable,
		LookPath:   osexec.LookPath,
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdout.Fd())) },
		Runner:     exec.NewRealRunner(),
		FS:         fs.NewRealFS(),
	}
}

// Run parses arguments and dispatches to the appropriate task.
// Returns an error if the task fails; the caller should print the error and exit.
func Run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunSystem(ctx, args, stdout, stderr, OSSystem())
}

// RunSystem is Run against an explicit System.
func RunSystem(ctx context.Context, args []string, stdout, stderr io.Writer, sys System) error {
	verbose := false

	// Global options precede the command.
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-h", "--help":
			fmt.Fprint(stdout, usageText)
			return nil
		case "-v", "--version":
			fmt.Fprintf(stdout, "devtask %s\n", version.Version)
			return nil
		case "--verbose":
			verbose = true
			args = args[1:]
		default:
			fmt.Fprint(stdout, usageText)
			return errors.New(errors.EUsage, fmt.Sprintf("unknown option: %s", args[0]))
		}
	}

	if len(args) == 0 {
		fmt.Fprint(stdout, usageText)
		return errors.New(errors.EUsage, "no command specified")
	}

	d := &dispatcher{sys: sys, stdout: stdout, stderr: stderr, verbose: verbose}
	cmd, cmdArgs := args[0], args[1:]

	switch cmd {
	case "format":
		return d.runFormat(ctx, cmdArgs)
	case "check":
		return d.runCheck(ctx, cmdArgs)
	case "createapp":
		return d.runCreateApp(ctx, cmdArgs)
	case "test":
		return d.runTest(ctx, cmdArgs)
	case "makemigrations":
		return d.runMakeMigrations(ctx, cmdArgs)
	case "migrate":
		return d.runMigrate(ctx, cmdArgs)
	case "hooks":
		return d.runHooks(ctx, cmdArgs)
	case "init":
		return d.runInit(ctx, cmdArgs)
	case "doctor":
		return d.runDoctor(ctx, cmdArgs)
	default:
		fmt.Fprint(stdout, usageText)
		return errors.New(errors.EUsage, fmt.Sprintf("unknown command: %s", cmd))
	}
}

type dispatcher struct {
	sys     System
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
}

// parse handles -h/--help (printing usage, returning helped=true) and parses
// flags. Help is detected manually so it exits 0.
func (d *dispatcher) parse(flagSet *flag.FlagSet, args []string, usage string) (helped bool, err error) {
	flagSet.SetOutput(io.Discard)
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			fmt.Fprint(d.stdout, usage)
			return true, nil
		}
	}
	if err := flagSet.Parse(args); err != nil {
		fmt.Fprint(d.stderr, usage)
		return false, errors.Wrap(errors.EUsage, "invalid flags", err)
	}
	return false, nil
}

// noArgs rejects positional arguments for tasks that take none.
func (d *dispatcher) noArgs(flagSet *flag.FlagSet, usage string) error {
	if flagSet.NArg() > 0 {
		fmt.Fprint(d.stderr, usage)
		return errors.New(errors.EUsage, "unexpected argument: "+flagSet.Arg(0))
	}
	return nil
}

// project resolves the project around the working directory: the nearest
// directory with devtask.yaml or manage.py, else the git repository root.
// It loads configuration, installs the logger and computes the Django
// environment overlay once.
func (d *dispatcher) project(ctx context.Context) (context.Context, *commands.Project, error) {
	cwd, err := d.sys.Getwd()
	if err != nil {
		return ctx, nil, errors.Wrap(errors.ENoProject, "failed to get working directory", err)
	}

	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		repo, gitErr := git.Open(ctx, d.sys.Runner, "git", cwd)
		if gitErr != nil {
			return ctx, nil, err
		}
		root = repo.Root
	}

	cfg, err := config.Load(root)
	if err != nil {
		return ctx, nil, err
	}

	logger := ctxlog.New(d.stderr, d.verbose || cfg.Verbose)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("project resolved", "root", cfg.Root, "config", cfg.File, "package", cfg.Package)

	return ctx, &commands.Project{
		Cfg:       cfg,
		Runner:    d.sys.Runner,
		FS:        d.sys.FS,
		DjangoEnv: config.DjangoEnv(d.sys.LookupEnv, cfg.Package),
		LookupEnv: d.sys.LookupEnv,
		PTY:       d.sys.IsTerminal(),
		Stdout:    d.stdout,
		Stderr:    d.stderr,
	}, nil
}

func (d *dispatcher) runFormat(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("format", flag.ContinueOnError)
	if helped, err := d.parse(flagSet, args, formatUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, formatUsageText); err != nil {
		return err
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.Format(ctx, p)
}

func (d *dispatcher) runCheck(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("check", flag.ContinueOnError)
	style := flagSet.Bool("style", true, "check style")
	typing := flagSet.Bool("typing", true, "check typing")
	noStyle := flagSet.Bool("no-style", false, "skip the style checks")
	noTyping := flagSet.Bool("no-typing", false, "skip the typing check")

	if helped, err := d.parse(flagSet, args, checkUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, checkUsageText); err != nil {
		return err
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.Check(ctx, p, commands.CheckOpts{
		Style:  *style && !*noStyle,
		Typing: *typing && !*noTyping,
	})
}

func (d *dispatcher) runCreateApp(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("createapp", flag.ContinueOnError)
	name := flagSet.String("name", "", "app name")

	if helped, err := d.parse(flagSet, args, createappUsageText); helped || err != nil {
		return err
	}

	// The name may also be given positionally.
	if *name == "" && flagSet.NArg() == 1 {
		*name = flagSet.Arg(0)
	} else if err := d.noArgs(flagSet, createappUsageText); err != nil {
		return err
	}
	if *name == "" {
		fmt.Fprint(d.stderr, createappUsageText)
		return errors.New(errors.EUsage, "--name is required")
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.CreateApp(ctx, p, commands.CreateAppOpts{Name: *name})
}

func (d *dispatcher) runTest(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("test", flag.ContinueOnError)
	coverage := flagSet.Bool("coverage", false, "gate on required_coverage")

	if helped, err := d.parse(flagSet, args, testUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, testUsageText); err != nil {
		return err
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.Test(ctx, p, commands.TestOpts{Coverage: *coverage})
}

func (d *dispatcher) runMakeMigrations(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("makemigrations", flag.ContinueOnError)
	var message string
	flagSet.StringVar(&message, "message", "", "revision message")
	flagSet.StringVar(&message, "m", "", "revision message")

	if helped, err := d.parse(flagSet, args, makemigrationsUsageText); helped || err != nil {
		return err
	}

	if message == "" && flagSet.NArg() == 1 {
		message = flagSet.Arg(0)
	} else if err := d.noArgs(flagSet, makemigrationsUsageText); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		fmt.Fprint(d.stderr, makemigrationsUsageText)
		return errors.New(errors.EUsage, "--message is required")
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.MakeMigrations(ctx, p, message)
}

func (d *dispatcher) runMigrate(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if helped, err := d.parse(flagSet, args, migrateUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, migrateUsageText); err != nil {
		return err
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.Migrate(ctx, p)
}

func (d *dispatcher) runHooks(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("hooks", flag.ContinueOnError)
	if helped, err := d.parse(flagSet, args, hooksUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, hooksUsageText); err != nil {
		return err
	}

	exe, err := d.sys.Executable()
	if err != nil {
		return errors.Wrap(errors.EInternal, "failed to locate the devtask executable", err)
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.Hooks(ctx, p, commands.HooksOpts{InvokePath: filepath.Dir(exe)})
}

func (d *dispatcher) runInit(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("init", flag.ContinueOnError)
	pkg := flagSet.String("package", "", "project package")
	force := flagSet.Bool("force", false, "overwrite an existing devtask.yaml")

	if helped, err := d.parse(flagSet, args, initUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, initUsageText); err != nil {
		return err
	}

	cwd, err := d.sys.Getwd()
	if err != nil {
		return errors.Wrap(errors.ENoProject, "failed to get working directory", err)
	}

	ctx = ctxlog.WithLogger(ctx, ctxlog.New(d.stderr, d.verbose))
	return commands.Init(ctx, d.sys.FS, cwd, commands.InitOpts{Package: *pkg, Force: *force}, d.stdout)
}

func (d *dispatcher) runDoctor(ctx context.Context, args []string) error {
	flagSet := flag.NewFlagSet("doctor", flag.ContinueOnError)
	if helped, err := d.parse(flagSet, args, doctorUsageText); helped || err != nil {
		return err
	}
	if err := d.noArgs(flagSet, doctorUsageText); err != nil {
		return err
	}

	ctx, p, err := d.project(ctx)
	if err != nil {
		return err
	}
	return commands.Doctor(ctx, p, d.sys.LookPath)
}
