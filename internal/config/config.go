// Package config loads devtask.yaml and resolves the project layout.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/osblog/devtask/internal/django"
	taskerrors "github.com/osblog/devtask/internal/errors"
)

// FileName is the project configuration file looked up from the working directory.
const FileName = "devtask.yaml"

// EnvPrefix prefixes environment overrides (DEVTASK_PACKAGE, DEVTASK_APPS_DIR, ...).
const EnvPrefix = "DEVTASK"

// Tool names that can be redirected through the tools map.
var ToolNames = []string{"autoflake", "isort", "black", "flake8", "mypy", "pytest", "alembic", "git"}

// Config is the resolved devtask configuration. Paths are relative to Root.
type Config struct {
	Package          string            `mapstructure:"package" yaml:"package"`
	Settings         string            `mapstructure:"settings" yaml:"settings"`
	AppsDir          string            `mapstructure:"apps_dir" yaml:"apps_dir"`
	Manage           string            `mapstructure:"manage" yaml:"manage"`
	HooksDir         string            `mapstructure:"hooks_dir" yaml:"hooks_dir"`
	Python           string            `mapstructure:"python" yaml:"python"`
	RequiredCoverage int               `mapstructure:"required_coverage" yaml:"required_coverage"`
	Tools            map[string]string `mapstructure:"tools" yaml:"tools,omitempty"`
	Verbose          bool              `mapstructure:"verbose" yaml:"-"`

	// Root is the project directory; File is the config file read, if any.
	Root string `mapstructure:"-" yaml:"-"`
	File string `mapstructure:"-" yaml:"-"`
}

// DefaultPackage is the project package of the osblog layout.
const DefaultPackage = "osblog"

// Default returns the configuration of the osblog project layout.
func Default() Config {
	return ForPackage(DefaultPackage)
}

// ForPackage returns the default layout for project package pkg.
func ForPackage(pkg string) Config {
	cfg := Config{
		Package:          pkg,
		Manage:           "manage.py",
		HooksDir:         ".hooks",
		Python:           "python3",
		RequiredCoverage: 90,
	}
	cfg.applyPackageDefaults()
	return cfg
}

func (c *Config) applyPackageDefaults() {
	if c.Settings == "" {
		c.Settings = filepath.ToSlash(filepath.Join(c.Package, "settings.py"))
	}
	if c.AppsDir == "" {
		c.AppsDir = filepath.ToSlash(filepath.Join(c.Package, "apps"))
	}
}

// Load reads <root>/devtask.yaml when present, applies DEVTASK_* environment
// overrides and defaults, and validates the result.
func Load(root string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("package", def.Package)
	// Settings and apps_dir follow the package unless set explicitly.
	v.SetDefault("settings", "")
	v.SetDefault("apps_dir", "")
	v.SetDefault("manage", def.Manage)
	v.SetDefault("hooks_dir", def.HooksDir)
	v.SetDefault("python", def.Python)
	v.SetDefault("required_coverage", def.RequiredCoverage)
	v.SetDefault("verbose", false)
	v.SetDefault("tools", map[string]string{})

	cfg := Config{Root: root}

	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, taskerrors.Wrap(taskerrors.EInvalidConfig, "failed to parse "+FileName, err)
		}
		cfg.File = path
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, taskerrors.Wrap(taskerrors.EInvalidConfig, "failed to read "+FileName, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, taskerrors.Wrap(taskerrors.EInvalidConfig, "failed to decode "+FileName, err)
	}
	cfg.Root = root
	cfg.applyPackageDefaults()

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FindProjectRoot walks up from dir to the first directory holding
// devtask.yaml or manage.py.
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", taskerrors.Wrap(taskerrors.ENoProject, "failed to resolve working directory", err)
	}

	for {
		for _, marker := range []string{FileName, "manage.py"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", taskerrors.New(taskerrors.ENoProject, "not in a project (no "+FileName+" or manage.py found)")
		}
		dir = parent
	}
}

func (c Config) abs(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

// SettingsPath is the absolute path of the settings module.
func (c Config) SettingsPath() string { return c.abs(c.Settings) }

// AppsPath is the absolute directory that holds project apps.
func (c Config) AppsPath() string { return c.abs(c.AppsDir) }

// AppDir is the directory startapp creates for name.
func (c Config) AppDir(name string) string { return filepath.Join(c.AppsPath(), name) }

// AppConfigPath is the generated apps.py of app name.
func (c Config) AppConfigPath(name string) string { return filepath.Join(c.AppDir(name), "apps.py") }

// ManagePath is the absolute path of manage.py.
func (c Config) ManagePath() string { return c.abs(c.Manage) }

// HooksPath is the directory of git hook templates.
func (c Config) HooksPath() string { return c.abs(c.HooksDir) }

// Tool returns the executable configured for a tool name.
func (c Config) Tool(name string) string {
	if exe := strings.TrimSpace(c.Tools[name]); exe != "" {
		return exe
	}
	return name
}

// ToolNamesSorted lists the tool names, including extra configured ones.
func (c Config) ToolNamesSorted() []string {
	seen := make(map[string]bool)
	var names []string
	for _, n := range ToolNames {
		seen[n] = true
		names = append(names, n)
	}
	var extra []string
	for n := range c.Tools {
		if !seen[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// SettingsModuleEnv is the variable Django reads its settings module from.
const SettingsModuleEnv = "DJANGO_SETTINGS_MODULE"

// DjangoEnv returns the environment overlay for subprocesses that boot
// Django. DJANGO_SETTINGS_MODULE defaults to <package>.settings and is never
// overridden when already set.
func DjangoEnv(lookup func(string) (string, bool), pkg string) map[string]string {
	if v, ok := lookup(SettingsModuleEnv); ok && v != "" {
		return nil
	}
	return map[string]string{SettingsModuleEnv: django.SettingsModule(pkg)}
}
