package scaffold

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/fs"
)

// RenderHook substitutes {invoke_path} in a hook template. "{{" and "}}"
// stand for literal braces, so shell text like ${VAR} is written ${{VAR}}.
// Any other {field} is an error.
func RenderHook(template, invokePath string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed '{' at offset %d", i)
			}
			field := template[i : i+end+1]
			if field != Placeholder {
				return "", fmt.Errorf("unknown placeholder %s", field)
			}
			b.WriteString(invokePath)
			i += end
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// InstallResult lists the hooks written by InstallHooks.
type InstallResult struct {
	Installed []string // absolute destination paths, in template order
}

// InstallHooks renders every regular file in srcDir into dstDir with mode
// 0755, printing "Installing: <dst>" before each one.
//
// Returns E_HOOKS_DIR_MISSING if srcDir does not exist and
// E_HOOK_TEMPLATE_INVALID for a template with a malformed placeholder.
// Templates already written stay in place when a later one fails.
func InstallHooks(fsys fs.FS, srcDir, dstDir, invokePath string, out io.Writer) (InstallResult, error) {
	var result InstallResult

	entries, err := fsys.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, errors.New(errors.EHooksDirMissing, "hook templates directory not found: "+srcDir)
		}
		return result, errors.Wrap(errors.EHooksDirMissing, "failed to list "+srcDir, err)
	}

	if err := fsys.MkdirAll(dstDir, 0755); err != nil {
		return result, errors.Wrap(errors.EWriteFailed, "failed to create "+dstDir, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		dst := filepath.Join(dstDir, entry.Name())
		fmt.Fprintf(out, "Installing: %s\n", dst)

		data, err := fsys.ReadFile(src)
		if err != nil {
			return result, errors.Wrap(errors.EWriteFailed, "failed to read "+src, err)
		}
		rendered, err := RenderHook(string(data), invokePath)
		if err != nil {
			return result, errors.WrapWithDetails(errors.EHookTemplateInvalid,
				"invalid hook template "+src, err, map[string]string{"template": src})
		}
		if err := fs.WriteFileAtomic(fsys, dst, []byte(rendered), 0755); err != nil {
			return result, errors.Wrap(errors.EWriteFailed, "failed to write "+dst, err)
		}
		result.Installed = append(result.Installed, dst)
	}

	return result, nil
}
