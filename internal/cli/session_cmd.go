package cli

import (
	"github.com/spf13/cobra"
)

var (
	sessionRequestID string
	sessionSigner    string
	sessionToken     string
)

func init() {
	sessionIssueCmd.Flags().StringVar(&sessionRequestID, "request", "", "signature request id (required)")
	sessionIssueCmd.Flags().StringVar(&sessionSigner, "signer", "", "signer email (required)")
	_ = sessionIssueCmd.MarkFlagRequired("request")
	_ = sessionIssueCmd.MarkFlagRequired("signer")
	sessionCmd.AddCommand(sessionIssueCmd)

	sessionStatusCmd.Flags().StringVar(&sessionToken, "token", "", "signing link token (required)")
	_ = sessionStatusCmd.MarkFlagRequired("token")
	sessionCmd.AddCommand(sessionStatusCmd)

	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage signing sessions",
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a signing session and email the signer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postJSON("/signing/create-signing-session", map[string]interface{}{
			"requestId":   sessionRequestID,
			"signerEmail": sessionSigner,
		})
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the redacted state of a signing session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postJSON("/signing/get-signing-session", map[string]interface{}{
			"token": sessionToken,
		})
	},
}
