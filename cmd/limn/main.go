package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/limn/internal/cli"
	apperr "github.com/matzehuels/limn/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	cancel()
	os.Exit(exitCode(os.Stderr, err))
}

func run(ctx context.Context) error {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging, including solver flushes")

	// Flags are parsed after RootCommand, so the level is set here.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}

// exitCode reports err on w and maps it to the process exit status:
// 130 after an interrupt, 2 for rejected input, 1 otherwise.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	code := apperr.GetCode(err)
	if code == "" {
		fmt.Fprintln(w, "Error:", err)
		return 1
	}
	fmt.Fprintf(w, "Error: %s (%s)\n", apperr.UserMessage(err), code)
	switch code {
	case apperr.ErrCodeInvalidInput,
		apperr.ErrCodeInvalidScene,
		apperr.ErrCodeInvalidConstraint,
		apperr.ErrCodeInvalidStrength,
		apperr.ErrCodeInvalidFormat,
		apperr.ErrCodeInvalidPath:
		return 2
	}
	return 1
}
