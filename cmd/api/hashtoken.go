package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/middleware"
	"github.com/spf13/cobra"
)

// hashTokenCmd gera o valor de API_TOKEN_HASH para um token da API
func hashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Gera o hash bcrypt de um token para API_TOKEN_HASH",
		Long:  "Gera o hash bcrypt de um token. Sem argumento o token é lido da primeira linha da entrada padrão.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("ler token: %w", err)
				}
				token = line
			}

			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token vazio")
			}

			hash, err := middleware.HashToken(token)
			if err != nil {
				return fmt.Errorf("gerar hash: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
