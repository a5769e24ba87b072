package handlers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/media"
)

// FilesHandler uploads attachments and serves them back.
type FilesHandler struct {
	media  *media.Service
	logger *slog.Logger
}

// NewFilesHandler creates a FilesHandler.
func NewFilesHandler(log *slog.Logger, mediaService *media.Service) *FilesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FilesHandler{
		media:  mediaService,
		logger: log.With(slog.String("handler", "files")),
	}
}

func (h *FilesHandler) Register(e *echo.Echo) {
	e.POST("/api/upload_multiple", h.UploadMultiple)
	e.GET("/api/files/*", h.Serve)
}

type uploadedFile struct {
	OriginalName string `json:"original_name"`
	FilePath     string `json:"file_path"`
	FileType     string `json:"file_type"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
}

type uploadError struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

type uploadResponse struct {
	Uploaded []uploadedFile `json:"uploaded_files"`
	Errors   []uploadError  `json:"errors"`
}

// UploadMultiple accepts a multipart batch under the "files" field. Each file
// succeeds or fails on its own; one bad file never sinks the batch.
func (h *FilesHandler) UploadMultiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files provided")
	}

	ctx := c.Request().Context()
	response := uploadResponse{
		Uploaded: make([]uploadedFile, 0, len(files)),
		Errors:   make([]uploadError, 0),
	}
	for _, header := range files {
		src, err := header.Open()
		if err != nil {
			response.Errors = append(response.Errors, uploadError{Filename: header.Filename, Reason: err.Error()})
			continue
		}
		desc, err := h.media.Store(ctx, media.UploadInput{OriginalName: header.Filename, Reader: src})
		_ = src.Close()
		if err != nil {
			response.Errors = append(response.Errors, uploadError{Filename: header.Filename, Reason: err.Error()})
			continue
		}
		response.Uploaded = append(response.Uploaded, uploadedFile{
			OriginalName: desc.OriginalName,
			FilePath:     desc.FilePath,
			FileType:     desc.FileType,
			SizeBytes:    desc.SizeBytes,
		})
	}

	status := http.StatusCreated
	if len(response.Uploaded) == 0 {
		status = http.StatusBadRequest
	}
	return c.JSON(status, response)
}

// Serve streams a stored attachment back to the client.
func (h *FilesHandler) Serve(c echo.Context) error {
	reader, err := h.media.Open(c.Request().Context(), c.Request().URL.Path)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(c.Request().URL.Path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), reader)
	return err
}
