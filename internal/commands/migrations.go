package commands

import (
	"context"
	"strings"

	"github.com/osblog/devtask/internal/errors"
)

// MakeMigrations implements `devtask makemigrations`: an autogenerated
// alembic revision with the given message.
func MakeMigrations(ctx context.Context, p *Project, message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.New(errors.EUsage, "--message is required")
	}
	return p.withLock(ctx, "makemigrations", func() error {
		return p.run(ctx, invocation{
			tool: "alembic",
			args: []string{"revision", "--autogenerate", "-m", message},
			env:  p.DjangoEnv,
			pty:  p.PTY,
		})
	})
}

// Migrate implements `devtask migrate`: alembic upgrade head.
func Migrate(ctx context.Context, p *Project) error {
	return p.withLock(ctx, "migrate", func() error {
		return p.run(ctx, invocation{
			tool: "alembic",
			args: []string{"upgrade", "head"},
			env:  p.DjangoEnv,
		})
	})
}
