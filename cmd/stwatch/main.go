package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"stwatch/internal/services"
)

func main() {
	cmd := newRootCommand()
	cmd.SetArgs(forwardUnknownFlags(cmd, os.Args[1:]))
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(services.ExitCode(err))
}
