package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailcode/internal/output"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authorized mailbox profile",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	handle, err := a.manager.EnsureCredential(ctx)
	if err != nil {
		return fmt.Errorf("not authorized: %w", err)
	}

	provider, err := a.gmail.Provider(ctx, handle.TokenSource)
	if err != nil {
		return err
	}

	profile, err := provider.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	return output.Output(outputFmt, profile)
}
