package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailcode/internal/output"
	"github.com/vijay-prabhu/mailcode/internal/resolver"
)

var (
	resolveNoCache bool
	resolveVerbose bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <alias>",
	Short: "Find the latest access code or household link for an alias",
	Long: `Resolve runs the same pipeline as POST /api/mail/latest once and
prints the result.

Examples:
  mailcode resolve owner+tv@gmail.com
  mailcode resolve owner+tv@gmail.com -o json
  mailcode resolve owner+tv@gmail.com --verbose --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveNoCache, "no-cache", false, "Ignore a cached result")
	resolveCmd.Flags().BoolVarP(&resolveVerbose, "verbose", "v", false, "Show pipeline progress")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := resolver.Options{SkipCache: resolveNoCache}
	if resolveVerbose {
		opts.Progress = progressPrinter(NewTerminal())
	}

	result, err := a.resolver.ResolveWithOptions(ctx, args[0], opts)
	if resolveVerbose {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return explainResolveError(err)
	}

	return output.Output(outputFmt, result)
}

// progressPrinter renders stage transitions on stderr
func progressPrinter(terminal *Terminal) resolver.ProgressCallback {
	var last resolver.Stage

	return func(p resolver.Progress) {
		msg := p.Description
		if p.Total > 0 {
			msg = fmt.Sprintf("%s: %d/%d (%d%%)", p.Description, p.Current, p.Total, p.Percentage())
		}

		if terminal.IsTerminal {
			terminal.ClearLine()
			fmt.Fprint(os.Stderr, terminal.Color(StageColor(p.Stage), terminal.Spinner()+" "+msg))
		} else if p.Stage != last {
			fmt.Fprintln(os.Stderr, msg)
		}
		last = p.Stage
	}
}

// explainResolveError adds the next step for errors a user can act on
func explainResolveError(err error) error {
	switch {
	case errors.Is(err, resolver.ErrNeedsAuthorization):
		return fmt.Errorf("%w\n\nRun 'mailcode auth url' and open the link to authorize the mailbox", err)
	case errors.Is(err, resolver.ErrNotFound):
		return fmt.Errorf("%w\n\nCheck the alias; only messages from the last days are searched", err)
	case errors.Is(err, resolver.ErrUnauthorized):
		return fmt.Errorf("%w\n\nAdd the address to [allowlist] in the config", err)
	default:
		return err
	}
}
