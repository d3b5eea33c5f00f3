package scaffold

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/osblog/devtask/internal/errors"
	"github.com/osblog/devtask/internal/fs"
)

func TestRenderHook(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"placeholder", `"{invoke_path}/devtask" check`, `"/opt/bin/devtask" check`, false},
		{"twice", "{invoke_path}:{invoke_path}", "/opt/bin:/opt/bin", false},
		{"escaped braces", "echo ${{HOME}}", "echo ${HOME}", false},
		{"no placeholders", "#!/bin/sh\nexit 0\n", "#!/bin/sh\nexit 0\n", false},
		{"unknown field", "echo {home}", "", true},
		{"unclosed", "echo {invoke_path", "", true},
		{"single close", "echo }", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderHook(tt.in, "/opt/bin")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderHook() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstallHooks(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, ".hooks")
	dst := filepath.Join(root, ".git", "hooks")

	if err := os.MkdirAll(filepath.Join(src, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "pre-commit"), []byte(PreCommitTemplate), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "pre-push"), []byte(PrePushTemplate), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	result, err := InstallHooks(fs.NewRealFS(), src, dst, "/opt/bin", &out)
	if err != nil {
		t.Fatalf("InstallHooks() error = %v", err)
	}

	want := []string{filepath.Join(dst, "pre-commit"), filepath.Join(dst, "pre-push")}
	if diff := cmp.Diff(want, result.Installed); diff != "" {
		t.Errorf("installed mismatch (-want +got):\n%s", diff)
	}

	wantOut := "Installing: " + want[0] + "\nInstalling: " + want[1] + "\n"
	if out.String() != wantOut {
		t.Errorf("output = %q, want %q", out.String(), wantOut)
	}

	data, err := os.ReadFile(want[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#!/bin/sh\nset -e\n\"/opt/bin/devtask\" check\n" {
		t.Errorf("pre-commit = %q", data)
	}

	info, err := os.Stat(want[1])
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %o, want 755", info.Mode().Perm())
	}

	if _, err := os.Stat(filepath.Join(dst, "nested")); !os.IsNotExist(err) {
		t.Error("directories in the templates dir should be skipped")
	}
}

func TestInstallHooks_Overwrites(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, ".hooks")
	dst := filepath.Join(root, "hooks")
	os.MkdirAll(src, 0755)
	os.MkdirAll(dst, 0755)
	os.WriteFile(filepath.Join(src, "pre-commit"), []byte("new\n"), 0644)
	os.WriteFile(filepath.Join(dst, "pre-commit"), []byte("old\n"), 0644)

	if _, err := InstallHooks(fs.NewRealFS(), src, dst, "/x", &bytes.Buffer{}); err != nil {
		t.Fatalf("InstallHooks() error = %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dst, "pre-commit"))
	if string(data) != "new\n" {
		t.Errorf("hook = %q, want overwritten", data)
	}
}

func TestInstallHooks_MissingSource(t *testing.T) {
	root := t.TempDir()
	_, err := InstallHooks(fs.NewRealFS(), filepath.Join(root, ".hooks"), filepath.Join(root, "hooks"), "/x", &bytes.Buffer{})
	if errors.GetCode(err) != errors.EHooksDirMissing {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EHooksDirMissing)
	}
}

func TestInstallHooks_InvalidTemplate(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, ".hooks")
	dst := filepath.Join(root, "hooks")
	os.MkdirAll(src, 0755)
	os.WriteFile(filepath.Join(src, "pre-commit"), []byte("echo ${HOME}\n"), 0644)

	_, err := InstallHooks(fs.NewRealFS(), src, dst, "/x", &bytes.Buffer{})
	if errors.GetCode(err) != errors.EHookTemplateInvalid {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.EHookTemplateInvalid)
	}
	if _, statErr := os.Stat(filepath.Join(dst, "pre-commit")); !os.IsNotExist(statErr) {
		t.Error("invalid template should not be installed")
	}
}

func TestCreateHookTemplates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".hooks")
	fsys := fs.NewRealFS()

	result, err := CreateHookTemplates(fsys, dir)
	if err != nil {
		t.Fatalf("CreateHookTemplates() error = %v", err)
	}
	if diff := cmp.Diff([]string{"pre-commit", "pre-push"}, result.Created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(filepath.Join(dir, "pre-push"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %o, want 755", info.Mode().Perm())
	}
}

func TestCreateHookTemplates_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("#!/bin/sh\nmake lint\n")
	if err := os.WriteFile(filepath.Join(dir, "pre-commit"), custom, 0755); err != nil {
		t.Fatal(err)
	}

	result, err := CreateHookTemplates(fs.NewRealFS(), dir)
	if err != nil {
		t.Fatalf("CreateHookTemplates() error = %v", err)
	}
	if diff := cmp.Diff([]string{"pre-commit"}, result.Skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pre-push"}, result.Created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "pre-commit"))
	if !bytes.Equal(data, custom) {
		t.Errorf("existing template changed: %q", data)
	}
}

func TestDefaultTemplatesRender(t *testing.T) {
	for _, tmpl := range DefaultHookTemplates() {
		if _, err := RenderHook(tmpl.Content, "/usr/local/bin"); err != nil {
			t.Errorf("%s: %v", tmpl.Name, err)
		}
	}
}
