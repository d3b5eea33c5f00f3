package django

import (
	"fmt"
	"os"
	"strings"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/fs"
)

const (
	// ListOpening marks the line that opens the INSTALLED_APPS list.
	ListOpening = "INSTALLED_APPS = ["
	// AppsMarker is the sentinel comment inside the list; project apps are
	// inserted right after it.
	AppsMarker = "# apps"
)

// InstalledApps is the INSTALLED_APPS list of a settings module, parsed
// once and re-serialized with every untouched line byte-identical.
type InstalledApps struct {
	lines  []string // each line keeps its terminator
	open   int      // index of the opening line
	close  int      // index of the line holding the closing bracket
	marker int      // index of the sentinel line, -1 when absent
	apps   []string
}

// ParseInstalledApps locates the INSTALLED_APPS list in a settings module.
func ParseInstalledApps(content string) (*InstalledApps, error) {
	a := &InstalledApps{lines: splitLines(content), open: -1, close: -1, marker: -1}

	for i, line := range a.lines {
		if !strings.Contains(line, ListOpening) {
			continue
		}
		if a.open >= 0 {
			return nil, errors.NewWithDetails(errors.ESettingsMarkerDuplicate,
				fmt.Sprintf("%q appears more than once", ListOpening),
				map[string]string{"first_line": fmt.Sprint(a.open + 1), "second_line": fmt.Sprint(i + 1)})
		}
		a.open = i
	}
	if a.open < 0 {
		return nil, errors.New(errors.ESettingsMarkerMissing,
			fmt.Sprintf("no line containing %q", ListOpening))
	}

	rest := a.lines[a.open][strings.Index(a.lines[a.open], ListOpening)+len(ListOpening):]
	if strings.Contains(rest, "]") {
		return nil, errors.New(errors.ESettingsMarkerMissing,
			"INSTALLED_APPS must be written over multiple lines")
	}

	for i := a.open + 1; i < len(a.lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(a.lines[i]), "]") {
			a.close = i
			break
		}
	}
	if a.close < 0 {
		return nil, errors.New(errors.ESettingsMarkerMissing, "INSTALLED_APPS list is never closed")
	}

	for i := a.open + 1; i < a.close; i++ {
		if !strings.Contains(a.lines[i], AppsMarker) {
			continue
		}
		if a.marker >= 0 {
			return nil, errors.NewWithDetails(errors.ESettingsMarkerDuplicate,
				fmt.Sprintf("%q appears more than once in INSTALLED_APPS", AppsMarker),
				map[string]string{"first_line": fmt.Sprint(a.marker + 1), "second_line": fmt.Sprint(i + 1)})
		}
		a.marker = i
	}

	a.scan()
	return a, nil
}

func (a *InstalledApps) scan() {
	a.apps = a.apps[:0]
	for i := a.open + 1; i < a.close; i++ {
		if mod, ok := parseEntry(a.lines[i]); ok {
			a.apps = append(a.apps, mod)
		}
	}
}

// parseEntry extracts the module path from a list line such as
// `    "django.contrib.admin",  # admin site`.
func parseEntry(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if q != '"' && q != '\'' {
		return "", false
	}
	end := strings.IndexByte(s[1:], q)
	if end < 0 {
		return "", false
	}
	return s[1 : end+1], true
}

// Apps returns the registered module paths in file order.
func (a *InstalledApps) Apps() []string {
	out := make([]string, len(a.apps))
	copy(out, a.apps)
	return out
}

// Has reports whether module is already registered.
func (a *InstalledApps) Has(module string) bool {
	for _, m := range a.apps {
		if m == module {
			return true
		}
	}
	return false
}

// Register inserts module directly after the sentinel comment unless it is
// already listed. A missing sentinel is restored right after the opening
// line. Reports whether the list changed.
func (a *InstalledApps) Register(module string) bool {
	if a.Has(module) {
		return false
	}

	eol := lineEnding(a.lines[a.open])
	var insert []string
	at := a.marker + 1
	indent := ""
	if a.marker >= 0 {
		indent = leadingSpace(a.lines[a.marker])
	} else {
		indent = a.entryIndent()
		insert = append(insert, indent+AppsMarker+eol)
		at = a.open + 1
		a.marker = a.open + 1
	}
	insert = append(insert, fmt.Sprintf("%s%q,%s", indent, module, eol))

	lines := make([]string, 0, len(a.lines)+len(insert))
	lines = append(lines, a.lines[:at]...)
	lines = append(lines, insert...)
	lines = append(lines, a.lines[at:]...)
	a.lines = lines
	a.close += len(insert)
	a.scan()
	return true
}

func (a *InstalledApps) entryIndent() string {
	for i := a.open + 1; i < a.close; i++ {
		if strings.TrimSpace(a.lines[i]) != "" {
			return leadingSpace(a.lines[i])
		}
	}
	return ""
}

// String serializes the settings module.
func (a *InstalledApps) String() string {
	return strings.Join(a.lines, "")
}

// RegisterResult describes what RegisterApp did.
type RegisterResult struct {
	Path    string
	Dotted  string
	Changed bool
}

// RegisterApp adds <pkg>.apps.<app> to INSTALLED_APPS in the settings file
// at path. The file is replaced atomically; on any failure it is untouched.
func RegisterApp(fsys fs.FS, path, pkg, app string) (RegisterResult, error) {
	res := RegisterResult{Path: path, Dotted: DottedPath(pkg, app)}

	changed, err := fs.RewriteFile(fsys, path, func(old []byte) ([]byte, error) {
		list, err := ParseInstalledApps(string(old))
		if err != nil {
			return nil, err
		}
		list.Register(res.Dotted)
		return []byte(list.String()), nil
	})
	if err != nil {
		return res, rewriteError(err, path, errors.ESettingsNotFound, "settings file")
	}
	res.Changed = changed
	return res, nil
}

// rewriteError maps a RewriteFile failure onto a coded error.
func rewriteError(err error, path string, notFound errors.Code, what string) error {
	if _, ok := errors.AsTaskError(err); ok {
		return err
	}
	details := map[string]string{"path": path}
	if os.IsNotExist(err) {
		return errors.WrapWithDetails(notFound, what+" not found: "+path, err, details)
	}
	return errors.WrapWithDetails(errors.EWriteFailed, "failed to rewrite "+path, err, details)
}

func splitLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
