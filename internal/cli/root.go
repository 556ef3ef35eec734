package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	bearer    string
)

var rootCmd = &cobra.Command{
	Use:   "signctl",
	Short: "Operator CLI for the e-signature API",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("SIGNCTL_SERVER", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&bearer, "auth-token", os.Getenv("SIGNCTL_TOKEN"), "owner bearer token")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
