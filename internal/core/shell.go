// Package core holds small helpers shared by devtask commands.
package core

import "strings"

// ShellEscapePosix returns a single shell token using single-quote strategy,
// including surrounding single quotes.
// example: abc -> 'abc'
// example: a'b -> 'a'"'"'b'
func ShellEscapePosix(s string) string {
	if s == "" {
		return "''"
	}
	// 'a'b' => 'a'"'"'b'
	escaped := strings.ReplaceAll(s, "'", "'\"'\"'")
	return "'" + escaped + "'"
}

// FormatCommand renders name and args as a copy-pasteable shell line.
// Arguments made only of safe characters are left bare; everything else
// goes through ShellEscapePosix.
// example: black, [osblog] -> black osblog
// example: alembic, [revision -m add posts] -> alembic revision -m 'add posts'
func FormatCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteIfNeeded(name))
	for _, a := range args {
		parts = append(parts, quoteIfNeeded(a))
	}
	return strings.Join(parts, " ")
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return "''"
	}
	for _, r := range s {
		if !isSafeShellRune(r) {
			return ShellEscapePosix(s)
		}
	}
	return s
}

func isSafeShellRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./=:,+@%", r)
}
