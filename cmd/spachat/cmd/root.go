package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "spachat",
	Short: "Spachat is a retail chat and admin dashboard service",
	Long: `A chat widget backend and admin dashboard API for a retail storefront.
Visitors chat with an AI assistant grounded on the store's knowledge base;
staff manage transcripts, callbacks and knowledge documents.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
