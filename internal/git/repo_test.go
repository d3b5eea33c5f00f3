package git

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/osblog/devtask/internal/errors"
	taskexec "github.com/osblog/devtask/internal/exec"
)

// stubRunner answers commands keyed by "name|args|dir".
type stubRunner struct {
	responses map[string]taskexec.CmdResult
	calls     []string
}

func newStubRunner() *stubRunner {
	return &stubRunner{responses: make(map[string]taskexec.CmdResult)}
}

func (s *stubRunner) On(name string, args []string, dir string, result taskexec.CmdResult) {
	s.responses[key(name, args, dir)] = result
}

func key(name string, args []string, dir string) string {
	return name + "|" + strings.Join(args, ",") + "|" + dir
}

func (s *stubRunner) Run(_ context.Context, name string, args []string, opts taskexec.RunOpts) (taskexec.CmdResult, error) {
	k := key(name, args, opts.Dir)
	s.calls = append(s.calls, k)
	if result, ok := s.responses[k]; ok {
		return result, nil
	}
	return taskexec.CmdResult{ExitCode: 127, Stderr: "command not found"}, nil
}

func TestOpen_Success(t *testing.T) {
	cr := newStubRunner()
	cr.On("git", []string{"rev-parse", "--show-toplevel"}, "/srv/osblog/osblog/apps", taskexec.CmdResult{
		Stdout: "/srv/osblog\n",
	})

	repo, err := Open(context.Background(), cr, "", "/srv/osblog/osblog/apps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.Root != filepath.Clean("/srv/osblog") {
		t.Errorf("Root = %q, want /srv/osblog", repo.Root)
	}
	if repo.Git != "git" {
		t.Errorf("Git = %q, want default git", repo.Git)
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cwd    string
		result taskexec.CmdResult
	}{
		{"empty cwd", "", taskexec.CmdResult{}},
		{"not in repo", "/tmp/x", taskexec.CmdResult{ExitCode: 128, Stderr: "fatal: not a git repository"}},
		{"empty output", "/tmp/x", taskexec.CmdResult{Stdout: "\n"}},
		{"multi-line output", "/tmp/x", taskexec.CmdResult{Stdout: "/a\n/b\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := newStubRunner()
			cr.On("git", []string{"rev-parse", "--show-toplevel"}, tt.cwd, tt.result)

			_, err := Open(context.Background(), cr, "git", tt.cwd)
			if errors.GetCode(err) != errors.ENoRepo {
				t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ENoRepo)
			}
		})
	}
}

func TestHooksDir(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"relative", ".git/hooks\n", "/srv/osblog/.git/hooks"},
		{"absolute worktree", "/srv/main/.git/hooks\n", "/srv/main/.git/hooks"},
		{"hooksPath", "tools/githooks\n", "/srv/osblog/tools/githooks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := newStubRunner()
			cr.On("/usr/bin/git", []string{"rev-parse", "--git-path", "hooks"}, "/srv/osblog", taskexec.CmdResult{Stdout: tt.out})

			repo := Repo{Root: "/srv/osblog", Git: "/usr/bin/git"}
			got, err := repo.HooksDir(context.Background(), cr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if filepath.ToSlash(got) != tt.want {
				t.Errorf("HooksDir = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHooksDir_RealRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "init", "-q", dir).CombinedOutput(); err != nil {
		t.Fatalf("git init failed: %v\n%s", err, out)
	}

	cr := taskexec.NewRealRunner()
	repo, err := Open(context.Background(), cr, "git", dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	hooks, err := repo.HooksDir(context.Background(), cr)
	if err != nil {
		t.Fatalf("HooksDir failed: %v", err)
	}

	if want := filepath.Join(repo.Root, ".git", "hooks"); hooks != want {
		t.Errorf("HooksDir = %q, want %q", hooks, want)
	}
}
