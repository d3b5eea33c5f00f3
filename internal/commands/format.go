package commands

import "context"

// autoflakeArgs strips unused imports, duplicate keys and unused variables in place.
var autoflakeArgs = []string{
	"-i",
	"--recursive",
	"--remove-all-unused-imports",
	"--remove-duplicate-keys",
	"--remove-unused-variables",
}

func formatInvocations(pkg string) []invocation {
	return []invocation{
		{tool: "autoflake", args: append(append([]string{}, autoflakeArgs...), pkg)},
		{tool: "isort", args: []string{pkg}},
		{tool: "black", args: []string{pkg}},
	}
}

// Format implements `devtask format`: autoflake, isort, then black over the package.
func Format(ctx context.Context, p *Project) error {
	return p.runAll(ctx, formatInvocations(p.Cfg.Package))
}
