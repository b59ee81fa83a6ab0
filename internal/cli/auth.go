package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailcode/internal/auth"
	"github.com/vijay-prabhu/mailcode/internal/output"
)

var authHint string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the mailbox authorization",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential state",
	RunE:  runAuthStatus,
}

var authURLCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the Google authorization URL",
	Long: `Url prints the consent URL. Open it in a browser; Google redirects to
oauth.redirect_uri, which must point at a running 'mailcode serve'.`,
	RunE: runAuthURL,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authURLCmd)
	authURLCmd.Flags().StringVar(&authHint, "email", "", "Preselect this Google account")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return output.Output(outputFmt, a.manager.Status(cmd.Context()))
}

func runAuthURL(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.OAuth.StateSecret == "" {
		return fmt.Errorf("oauth.state_secret must be set so the server can verify this link")
	}
	signer, err := auth.NewStateSigner(a.cfg.OAuth.StateSecret)
	if err != nil {
		return err
	}
	state, err := signer.Issue()
	if err != nil {
		return err
	}

	url := a.oauth.AuthURL(state, authHint)
	if outputFmt == "json" {
		return output.JSON(map[string]interface{}{"ok": true, "url": url})
	}
	fmt.Println(url)
	return nil
}
