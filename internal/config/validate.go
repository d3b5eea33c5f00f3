package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/osblog/devtask/internal/django"
	"github.com/osblog/devtask/internal/errors"
)

// Validate checks the semantic constraints of a loaded configuration.
// Returns E_INVALID_CONFIG naming the first offending field.
func Validate(cfg Config) error {
	if !django.IsIdentifier(cfg.Package) {
		return invalid("package", fmt.Sprintf("%q is not a valid Python package name", cfg.Package))
	}

	paths := []struct {
		field string
		value string
	}{
		{"settings", cfg.Settings},
		{"apps_dir", cfg.AppsDir},
		{"manage", cfg.Manage},
		{"hooks_dir", cfg.HooksDir},
	}
	for _, p := range paths {
		if err := validateRelPath(p.field, p.value); err != nil {
			return err
		}
	}

	if strings.TrimSpace(cfg.Python) == "" {
		return invalid("python", "must be a non-empty executable")
	}
	if cfg.RequiredCoverage < 0 || cfg.RequiredCoverage > 100 {
		return invalid("required_coverage", "must be between 0 and 100")
	}

	for name, exe := range cfg.Tools {
		if containsWhitespace(exe) {
			return invalid("tools."+name, "must be a single executable (no args); use a wrapper script")
		}
	}
	return nil
}

func validateRelPath(field, value string) error {
	if value == "" {
		return invalid(field, "must not be empty")
	}
	if filepath.IsAbs(value) || strings.HasPrefix(value, "/") {
		return invalid(field, "must be relative to the project root")
	}
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(value)))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return invalid(field, "must stay inside the project root")
	}
	return nil
}

func invalid(field, msg string) error {
	return errors.NewWithDetails(errors.EInvalidConfig, field+": "+msg, map[string]string{"field": field})
}

func containsWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
