package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
)

// ParseNextLink extracts the target of the first Link entry whose rel mentions "next".
// Header format: <https://...?page=2>; rel="next", <...>; rel="prev"
func ParseNextLink(header string) string {
	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			continue
		}

		target := strings.TrimSpace(parts[0])
		if len(target) < 2 || target[0] != '<' || target[len(target)-1] != '>' {
			continue
		}

		for _, param := range parts[1:] {
			param = strings.TrimSpace(param)
			if strings.HasPrefix(param, "rel=") && strings.Contains(param, "next") {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

// walk percorre uma coleção paginada seguindo o header Link.
// Em caso de falha devolve tudo o que já foi coletado junto com o erro.
func walk[T any](ctx context.Context, c *Client, startURL string) ([]T, error) {
	items := make([]T, 0)
	seen := make(map[string]bool)
	next := startURL
	page := 0

	for next != "" {
		next = c.resolve(next)
		if seen[next] {
			logger.Get(ctx).Warn().
				Str("url", next).
				Msg("Link header repetiu uma página, interrompendo")
			break
		}
		seen[next] = true
		page++

		resp, err := c.exchange(ctx, http.MethodGet, next, nil, "")
		if err != nil {
			logger.Get(ctx).Warn().
				Str("url", next).
				Int("page", page).
				Int("collected", len(items)).
				Err(err).
				Msg("Falha na paginação, retornando parcial")
			return items, fmt.Errorf("página %d: %w", page, err)
		}

		var batch []T
		if err := json.Unmarshal(resp.body, &batch); err != nil {
			return items, fmt.Errorf("página %d: %w: %v", page, model.ErrInvalidResponse, err)
		}
		items = append(items, batch...)

		next = ParseNextLink(resp.header.Get("Link"))
	}

	logger.Get(ctx).Debug().
		Str("url", startURL).
		Int("pages", page).
		Int("items", len(items)).
		Msg("Coleção concluída")
	return items, nil
}
