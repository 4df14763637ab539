package main

import (
	"encoding/json"
	"fmt"

	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/spf13/cobra"
)

// projectsCmd imprime os projetos agregados de um usuário, útil para conferir o token
func projectsCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Lista os projetos do usuário com todos e contagens",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			aggregator := service.NewAggregator(a.client, a.metrics)
			projects := service.NewProjectService(a.client, aggregator, a.cfg.BatchSize, nil)

			rows, err := projects.All(cmd.Context(), email)
			if err != nil {
				return fmt.Errorf("buscar projetos: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email do usuário (obrigatório)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
