package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "2.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "basecamp-dashboard",
		Short:         "Proxy e dashboard de projetos do Basecamp 3",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// sem subcomando sobe o servidor
		RunE: runServe,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(hashTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
