// Package scaffold writes default hook templates and installs them into git.
package scaffold

import (
	"os"
	"path/filepath"

	"github.com/osblog/devtask/internal/fs"
)

// Placeholder is replaced with the directory holding the devtask binary.
const Placeholder = "{invoke_path}"

// HookTemplate is a hook template to create under the hooks directory.
type HookTemplate struct {
	Name    string // file name, also the git hook name
	Content string
}

// PreCommitTemplate runs the style and typing checks before each commit.
const PreCommitTemplate = `#!/bin/sh
set -e
"{invoke_path}/devtask" check
`

// PrePushTemplate runs the test suite before each push.
const PrePushTemplate = `#!/bin/sh
set -e
"{invoke_path}/devtask" test
`

// DefaultHookTemplates returns the templates written by init.
func DefaultHookTemplates() []HookTemplate {
	return []HookTemplate{
		{Name: "pre-commit", Content: PreCommitTemplate},
		{Name: "pre-push", Content: PrePushTemplate},
	}
}

// CreateTemplatesResult holds the result of template creation.
type CreateTemplatesResult struct {
	Created []string // template names that were created
	Skipped []string // template names that already existed
}

// CreateHookTemplates creates the default templates under hooksDir if they
// don't exist. Never overwrites existing templates.
func CreateHookTemplates(fsys fs.FS, hooksDir string) (CreateTemplatesResult, error) {
	result := CreateTemplatesResult{}

	if err := fsys.MkdirAll(hooksDir, 0755); err != nil {
		return result, err
	}

	for _, tmpl := range DefaultHookTemplates() {
		path := filepath.Join(hooksDir, tmpl.Name)

		_, err := fsys.Stat(path)
		if err == nil {
			result.Skipped = append(result.Skipped, tmpl.Name)
			continue
		}
		if !os.IsNotExist(err) {
			return result, err
		}

		if err := fs.WriteFileAtomic(fsys, path, []byte(tmpl.Content), 0755); err != nil {
			return result, err
		}
		result.Created = append(result.Created, tmpl.Name)
	}

	return result, nil
}
