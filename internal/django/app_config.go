package django

import (
	"fmt"
	"strings"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/fs"
)

// NameField marks the AppConfig attribute holding the app's import path.
const NameField = "name ="

// isNameLine reports whether line assigns the name field. The marker must
// not be the tail of a longer identifier, so verbose_name is left alone.
func isNameLine(line string) bool {
	for from := 0; ; {
		i := strings.Index(line[from:], NameField)
		if i < 0 {
			return false
		}
		i += from
		if i == 0 || !isIdentByte(line[i-1]) {
			return true
		}
		from = i + len(NameField)
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// SetAppName replaces every name assignment in an apps.py module with
// `    name = '<dotted>'`, keeping each line's ending. Returns the new content and the number of lines
// replaced.
func SetAppName(content, dotted string) (string, int) {
	var b strings.Builder
	replaced := 0
	for _, line := range splitLines(content) {
		if isNameLine(line) {
			fmt.Fprintf(&b, "    name = '%s'%s", dotted, lineEnding(line))
			replaced++
			continue
		}
		b.WriteString(line)
	}
	return b.String(), replaced
}

// ConfigureResult describes what ConfigureApp did.
type ConfigureResult struct {
	Path     string
	Dotted   string
	Replaced int
	Changed  bool
}

// ConfigureApp points the AppConfig in the apps.py at path to
// <pkg>.apps.<app>. The file is replaced atomically; on any failure it is
// untouched.
func ConfigureApp(fsys fs.FS, path, pkg, app string) (ConfigureResult, error) {
	res := ConfigureResult{Path: path, Dotted: DottedPath(pkg, app)}

	changed, err := fs.RewriteFile(fsys, path, func(old []byte) ([]byte, error) {
		updated, n := SetAppName(string(old), res.Dotted)
		if n == 0 {
			return nil, errors.NewWithDetails(errors.EAppConfigNameMissing,
				fmt.Sprintf("no line containing %q", NameField),
				map[string]string{"path": path})
		}
		res.Replaced = n
		return []byte(updated), nil
	})
	if err != nil {
		return res, rewriteError(err, path, errors.EAppConfigNotFound, "app config")
	}
	res.Changed = changed
	return res, nil
}
