package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cleberrangel/basecamp-dashboard/internal/client"
	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/metrics"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
)

// File upload errors
var (
	ErrFileTooLarge = errors.New("arquivo excede o limite configurado")
	ErrEmptyFile    = errors.New("arquivo está vazio")
	ErrInvalidName  = errors.New("nome de arquivo inválido")
)

// DefaultMaxUploadBytes is used when no limit is configured (25MB)
const DefaultMaxUploadBytes = 25 * 1024 * 1024

// VaultUpload descreve um arquivo recebido para envio a um vault
type VaultUpload struct {
	ProjectID   int64
	VaultID     int64
	Filename    string
	ContentType string
	Description string
	Size        int64
	Body        io.Reader
}

// UploadService envia arquivos para vaults do Basecamp via attachments
type UploadService struct {
	client   *client.Client
	maxBytes int64
	metrics  *metrics.Metrics
}

// NewUploadService creates a new upload service
func NewUploadService(c *client.Client, maxBytes int64, m *metrics.Metrics) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if m == nil {
		m = metrics.Get()
	}
	return &UploadService{client: c, maxBytes: maxBytes, metrics: m}
}

// MaxBytes is the configured size limit
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload posts the bytes to /attachments.json, then creates the upload in the vault
func (s *UploadService) Upload(ctx context.Context, in VaultUpload) (model.Upload, error) {
	start := time.Now()

	upload, size, err := s.upload(ctx, in)

	audit := logger.AuditEvent{
		Action:     logger.AuditActionFileUpload,
		Resource:   "vault",
		ResourceID: fmt.Sprintf("%d/%d", in.ProjectID, in.VaultID),
		Duration:   time.Since(start).Milliseconds(),
		Success:    err == nil,
		Details: map[string]interface{}{
			"filename": in.Filename,
			"size":     size,
		},
	}
	if err != nil {
		audit.Error = err.Error()
	} else {
		s.metrics.IncrementFileUpload(size)
	}
	logger.Audit(ctx, audit)

	return upload, err
}

func (s *UploadService) upload(ctx context.Context, in VaultUpload) (model.Upload, int64, error) {
	name := filepath.Base(strings.TrimSpace(in.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return model.Upload{}, 0, ErrInvalidName
	}

	// Validate file size
	if in.Size > s.maxBytes {
		return model.Upload{}, in.Size, ErrFileTooLarge
	}

	// Copy content with size limit
	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxBytes+1))
	if err != nil {
		return model.Upload{}, 0, fmt.Errorf("ler arquivo: %w", err)
	}
	size := int64(len(data))
	if size > s.maxBytes {
		return model.Upload{}, size, ErrFileTooLarge
	}
	if size == 0 {
		return model.Upload{}, 0, ErrEmptyFile
	}

	att, err := s.client.CreateAttachment(ctx, name, contentTypeFor(name, in.ContentType, data), data)
	if err != nil {
		return model.Upload{}, size, err
	}

	created, err := s.client.CreateUpload(ctx, in.ProjectID, in.VaultID, client.NewUpload{
		AttachableSGID: att.AttachableSGID,
		Description:    in.Description,
		BaseName:       strings.TrimSuffix(name, filepath.Ext(name)),
	})
	if err != nil {
		return model.Upload{}, size, err
	}

	logger.Get(ctx).Info().
		Int64("project_id", in.ProjectID).
		Int64("vault_id", in.VaultID).
		Str("filename", name).
		Int64("size", size).
		Msg("Arquivo enviado ao vault")
	return created, size, nil
}

// contentTypeFor prefers the declared type, then the extension, then sniffing
func contentTypeFor(name, declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data[:min(len(data), 512)])
}
