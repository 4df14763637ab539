package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/middleware"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
	"github.com/cleberrangel/basecamp-dashboard/internal/service"
	"github.com/gin-gonic/gin"
)

// multipart boundaries and the description field
const multipartOverhead = 1 << 20

// UploadHandler handles file upload requests
type UploadHandler struct {
	uploadService *service.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *service.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// UploadFile envia o arquivo para uma pasta (vault) do projeto
// @Summary      Upload file to a vault
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "arquivo"
// @Param        description formData string false "descrição"
// @Success      201 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      413 {object} model.ErrorResponse
// @Router       /vaults/{projectId}/{vaultId}/uploads [post]
func (h *UploadHandler) UploadFile(c *gin.Context) {
	log := logger.FromGin(c)

	projectID, ok := parseID(c, "projectId")
	if !ok {
		return
	}
	vaultID, ok := parseID(c, "vaultId")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxBytes()+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleError(c, service.ErrFileTooLarge)
			return
		}
		log.Warn().Err(err).Msg("Erro ao obter arquivo do formulário")
		badRequest(c, "arquivo não encontrado no formulário", "use o campo 'file' para enviar o arquivo")
		return
	}
	defer file.Close()

	filename := middleware.SanitizeFilename(header.Filename)

	log.Info().
		Str("filename", filename).
		Int64("size", header.Size).
		Int64("project_id", projectID).
		Int64("vault_id", vaultID).
		Msg("Enviando arquivo para o Basecamp")

	upload, err := h.uploadService.Upload(c.Request.Context(), service.VaultUpload{
		ProjectID:   projectID,
		VaultID:     vaultID,
		Filename:    filename,
		ContentType: header.Header.Get("Content-Type"),
		Description: c.PostForm("description"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.Response{
		Success: true,
		Message: fmt.Sprintf("Arquivo %s enviado", upload.Filename),
		Data:    upload,
	})
}
