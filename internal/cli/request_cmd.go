package cli

import (
	"github.com/spf13/cobra"
)

var (
	requestName string
	requestPath string

	fieldRequestID string
	fieldSigner    string
	fieldType      string
	fieldPage      int
	fieldX         float64
	fieldY         float64
	fieldWidth     float64
	fieldHeight    float64
)

func init() {
	requestCreateCmd.Flags().StringVar(&requestName, "name", "", "document name (required)")
	requestCreateCmd.Flags().StringVar(&requestPath, "path", "", "blob storage path of the uploaded document (required)")
	_ = requestCreateCmd.MarkFlagRequired("name")
	_ = requestCreateCmd.MarkFlagRequired("path")
	requestCmd.AddCommand(requestCreateCmd)
	rootCmd.AddCommand(requestCmd)

	fieldAddCmd.Flags().StringVar(&fieldRequestID, "request", "", "signature request id (required)")
	fieldAddCmd.Flags().StringVar(&fieldSigner, "signer", "", "signer email (required)")
	fieldAddCmd.Flags().StringVar(&fieldType, "type", "signature", "field type: signature or initials")
	fieldAddCmd.Flags().IntVar(&fieldPage, "page", 1, "1-indexed page number")
	fieldAddCmd.Flags().Float64Var(&fieldX, "x", 72, "top-left x in PDF points")
	fieldAddCmd.Flags().Float64Var(&fieldY, "y", 600, "top-left y in PDF points")
	fieldAddCmd.Flags().Float64Var(&fieldWidth, "width", 180, "field width in points")
	fieldAddCmd.Flags().Float64Var(&fieldHeight, "height", 50, "field height in points")
	_ = fieldAddCmd.MarkFlagRequired("request")
	_ = fieldAddCmd.MarkFlagRequired("signer")
	fieldCmd.AddCommand(fieldAddCmd)
	rootCmd.AddCommand(fieldCmd)
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Manage signature requests",
}

var requestCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a signature request for an uploaded document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postJSON("/requests", map[string]interface{}{
			"documentName": requestName,
			"documentPath": requestPath,
		})
	},
}

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Manage signer slots on a request",
}

var fieldAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Assign a signer slot to a request",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postJSON("/requests/"+fieldRequestID+"/fields", map[string]interface{}{
			"signerEmail": fieldSigner,
			"type":        fieldType,
			"page":        fieldPage,
			"x":           fieldX,
			"y":           fieldY,
			"width":       fieldWidth,
			"height":      fieldHeight,
		})
	},
}
