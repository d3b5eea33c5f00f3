package commands

import (
	"context"
	"strconv"
)

// TestOpts holds options for the test task.
type TestOpts struct {
	Coverage bool // gate on required_coverage
}

func pytestArgs(pkg string, requiredCoverage int, opts TestOpts) []string {
	if !opts.Coverage {
		return nil
	}
	return []string{"--cov=" + pkg, "--cov-fail-under=" + strconv.Itoa(requiredCoverage)}
}

// Test implements `devtask test`: pytest, on a pseudo-terminal when attached
// to one so its colored output survives.
func Test(ctx context.Context, p *Project, opts TestOpts) error {
	return p.run(ctx, invocation{
		tool: "pytest",
		args: pytestArgs(p.Cfg.Package, p.Cfg.RequiredCoverage, opts),
		env:  p.DjangoEnv,
		pty:  p.PTY,
	})
}
