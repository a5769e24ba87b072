package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/atendohq/atendo/internal/media"
	"github.com/atendohq/atendo/internal/storage/localfs"
)

func newFilesHandler(t *testing.T) *FilesHandler {
	t.Helper()
	provider, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	svc := media.NewService(nil, provider, media.Limits{
		MaxBytes: 1 << 20,
		AllowedExtensions: map[string][]string{
			"image":    {".png", ".jpg"},
			"document": {".pdf"},
		},
	})
	return NewFilesHandler(nil, svc)
}

func multipartUpload(t *testing.T, files map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/upload_multiple", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestUploadMultipleSplitsSuccessesAndErrors(t *testing.T) {
	t.Parallel()

	h := newFilesHandler(t)
	c, rec := multipartUpload(t, map[string]string{
		"photo.png":   "image-bytes",
		"invoice.pdf": "pdf-bytes",
		"virus.exe":   "nope",
	})
	if err := h.UploadMultiple(c); err != nil {
		t.Fatalf("UploadMultiple: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, want 201", rec.Code)
	}

	var body struct {
		Uploaded []struct {
			OriginalName string `json:"original_name"`
			FilePath     string `json:"file_path"`
			FileType     string `json:"file_type"`
		} `json:"uploaded_files"`
		Errors []struct {
			Filename string `json:"filename"`
			Reason   string `json:"reason"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Uploaded) != 2 {
		t.Fatalf("uploaded_files = %+v", body.Uploaded)
	}
	if len(body.Errors) != 1 || body.Errors[0].Filename != "virus.exe" || body.Errors[0].Reason == "" {
		t.Fatalf("errors = %+v", body.Errors)
	}
	for _, f := range body.Uploaded {
		if !strings.HasPrefix(f.FilePath, "/api/files/") {
			t.Fatalf("file_path = %q", f.FilePath)
		}
	}
}

func TestUploadMultipleAllRejectedIsBadRequest(t *testing.T) {
	t.Parallel()

	h := newFilesHandler(t)
	c, rec := multipartUpload(t, map[string]string{"script.sh": "echo hi"})
	if err := h.UploadMultiple(c); err != nil {
		t.Fatalf("UploadMultiple: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}
