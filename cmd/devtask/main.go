// Command devtask runs the development tasks of the osblog Django project.
package main

import (
	"os"

	"github.com/osblog/devtask/internal/cli"
	"github.com/osblog/devtask/internal/errors"
)

func main() {
	err := cli.Run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}
