// Package django rewrites the Django project files touched when an app is
// scaffolded: the INSTALLED_APPS list in the settings module and the name
// field of the app's generated AppConfig.
package django

import (
	"fmt"
	"regexp"

	"github.com/osblog/devtask/internal/errors"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// pythonKeywords cannot be used as package names.
var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// reservedModules are refused by `manage.py startapp` because they shadow
// importable modules.
var reservedModules = map[string]bool{
	"django": true,
	"site":   true,
	"test":   true,
}

// IsIdentifier reports whether s is usable as a Python package name.
func IsIdentifier(s string) bool {
	return identifierRe.MatchString(s) && !pythonKeywords[s]
}

// ValidateAppName checks that name can become a Django app package.
func ValidateAppName(name string) error {
	if name == "" {
		return errors.New(errors.EInvalidAppName, "app name is required")
	}
	if !IsIdentifier(name) {
		return errors.New(errors.EInvalidAppName,
			fmt.Sprintf("app name %q is not a valid Python identifier", name))
	}
	if reservedModules[name] {
		return errors.New(errors.EInvalidAppName,
			fmt.Sprintf("app name %q conflicts with an existing Python module", name))
	}
	return nil
}

// DottedPath returns the import path of an app living under <pkg>/apps.
func DottedPath(pkg, app string) string {
	return pkg + ".apps." + app
}

// SettingsModule returns the dotted settings module of pkg.
func SettingsModule(pkg string) string {
	return pkg + ".settings"
}
