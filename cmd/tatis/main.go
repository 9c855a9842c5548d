package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", r)
			if internal.IsVerbose() {
				fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			} else {
				fmt.Fprintln(os.Stderr, "Run with --verbose for stack trace")
			}
			os.Exit(internal.ExitError)
		}
	}()

	if err := Execute(context.Background()); err != nil {
		os.Exit(internal.HandleError(rootCmd, err))
	}
	os.Exit(internal.ExitSuccess)
}
