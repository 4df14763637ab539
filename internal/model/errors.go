package model

import "errors"

var (
	// ErrRateLimited indica que a API do Basecamp retornou 429
	ErrRateLimited = errors.New("rate limit excedido na API do Basecamp")

	// ErrUnauthorized indica token inválido ou expirado
	ErrUnauthorized = errors.New("token do Basecamp inválido ou expirado")

	// ErrForbidden indica que o token não tem acesso ao recurso
	ErrForbidden = errors.New("acesso negado pelo Basecamp")

	// ErrNotFound indica recurso não encontrado
	ErrNotFound = errors.New("recurso não encontrado no Basecamp")

	// ErrTimeout indica timeout na requisição
	ErrTimeout = errors.New("timeout na requisição para o Basecamp")

	// ErrInvalidResponse indica resposta inválida da API
	ErrInvalidResponse = errors.New("resposta inválida da API do Basecamp")

	// ErrNoToken indica que nenhum token OAuth foi obtido ainda
	ErrNoToken = errors.New("nenhum token do Basecamp disponível, autorize em /auth")

	// ErrInvalidInput indica parâmetros de entrada inválidos
	ErrInvalidInput = errors.New("parâmetros inválidos")

	// ErrEmailRequired is returned before any upstream call when the requester email is absent
	ErrEmailRequired = errors.New("email is required to fetch projects")
)
