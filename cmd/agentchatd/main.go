package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/agentchat/internal/cli"
	"github.com/cloo-solutions/agentchat/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agentchatd",
		Short: "Agentchat daemon and CLI",
		Long:  "Agentchat daemon for running the API server and managing chat agents",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.AgentCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
