package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkflow/server/internal/auth"
)

var (
	tokenEmail  string
	tokenSecret string
	tokenTTL    time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "owner email (required)")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", os.Getenv("JWT_SECRET"), "owner JWT secret (defaults to JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an owner bearer token locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenSecret == "" {
			return fmt.Errorf("no secret: pass --secret or set JWT_SECRET")
		}
		signed, err := auth.NewOwnerTokenService(tokenSecret, tokenTTL).
			Sign(auth.OwnerID(tokenEmail), tokenEmail)
		if err != nil {
			return err
		}
		fmt.Println(signed)
		return nil
	},
}
