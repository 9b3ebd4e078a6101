package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/safecampus/sentra/internal/cli"
	"github.com/safecampus/sentra/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sentrad",
		Short: "Sentra daemon and CLI",
		Long:  "Sentra daemon for running the API server and managing users and access tokens",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.TokenCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
