package commands

import "context"

// CheckOpts selects the check groups. Both run by default.
type CheckOpts struct {
	Style  bool
	Typing bool
}

func checkInvocations(pkg string, opts CheckOpts) []invocation {
	var invs []invocation
	if opts.Style {
		invs = append(invs,
			invocation{tool: "flake8", args: []string{pkg}},
			invocation{tool: "isort", args: []string{"--diff", pkg, "--check-only"}},
			invocation{tool: "black", args: []string{"--diff", pkg, "--check"}},
		)
	}
	if opts.Typing {
		invs = append(invs, invocation{tool: "mypy", args: []string{"--no-incremental", "--cache-dir=/dev/null", pkg}})
	}
	return invs
}

// Check implements `devtask check`. The first failing checker stops the run
// and its exit code becomes the process exit code.
func Check(ctx context.Context, p *Project, opts CheckOpts) error {
	return p.runAll(ctx, checkInvocations(p.Cfg.Package, opts))
}
