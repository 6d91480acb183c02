package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"data-extractor/internal/app"
	"data-extractor/internal/transport/http/response"
)

const maxDocumentSize = 20 << 20 // 20 MB per document

type ExtractHandler struct {
	extractService *app.ExtractService
}

func NewExtractHandler(extractService *app.ExtractService) *ExtractHandler {
	return &ExtractHandler{extractService: extractService}
}

// Extract accepts a multipart form with "columns" (JSON array, required),
// optional "rows" and "fileMeta" JSON arrays, and one or more "documents"
// file parts, and returns the per-document extraction results.
func (h *ExtractHandler) Extract(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}

	documents := make([]app.Document, 0, len(form.File["documents"]))
	for _, fileHeader := range form.File["documents"] {
		if fileHeader.Size > maxDocumentSize {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "document too large (max 20MB)")
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to open uploaded document")
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read uploaded document")
			return
		}
		documents = append(documents, app.Document{
			Filename: fileHeader.Filename,
			Content:  content,
		})
	}

	result, err := h.extractService.Extract(c.Request.Context(), app.ExtractInput{
		ColumnsJSON:  c.PostForm("columns"),
		RowsJSON:     c.PostForm("rows"),
		FileMetaJSON: c.PostForm("fileMeta"),
		Documents:    documents,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrColumnsPayloadMissing),
			errors.Is(err, app.ErrNoActiveColumns),
			errors.Is(err, app.ErrNoDocuments),
			errors.Is(err, app.ErrRowsPayloadMalformed),
			errors.Is(err, app.ErrFileMetaMalformed),
			errors.Is(err, app.ErrColumnKeyCollision):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusBadGateway, response.CodeUpstreamError, "extraction failed: "+err.Error())
		}
		return
	}

	response.OK(c, result)
}
