package handlers

import (
	"KnowBase/internal/blobstore"
	"KnowBase/internal/config"
	"KnowBase/internal/middleware"
	"KnowBase/internal/model"
	"KnowBase/internal/service"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BlobReader отдаёт сохранённые байты по пути.
type BlobReader interface {
	Get(ctx context.Context, path string) (*model.Blob, error)
}

// FileHandler — загрузка и удаление вложений, ссылки на видео, раздача файлов.
type FileHandler struct {
	Attachments *service.AttachmentService
	Blobs       BlobReader
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewFileHandler создаёт хендлер файлов
func NewFileHandler(attachments *service.AttachmentService, blobs BlobReader, logger *zap.SugaredLogger, cfg *config.Config) *FileHandler {
	return &FileHandler{Attachments: attachments, Blobs: blobs, Logger: logger, Config: cfg}
}

// Upload принимает multipart-поле "file". С kind=video результатом будет видео вида upload.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Лимит общего тела запроса: файл плюс запас на заголовки multipart
	maxBody := h.Config.BlobMaxBytes() + 1*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Logger.Warnw("Upload: payload too large", "limit", maxBody)
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "payload too large"})
			return
		}
		writeError(w, h.Logger, "upload", &service.ValidationError{Field: "file", Reason: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.Logger, "upload", &service.ValidationError{Field: "file", Reason: "missing file"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.Logger, "upload", &service.ValidationError{Field: "file", Reason: "failed to read file"})
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	declared := header.Header.Get("Content-Type")
	if r.FormValue("kind") == string(model.VideoUpload) || r.FormValue("kind") == "video" {
		v, err := h.Attachments.UploadVideo(r.Context(), sess, header.Filename, data, declared)
		if err != nil {
			writeError(w, h.Logger, "upload video", err)
			return
		}
		writeJSON(w, http.StatusCreated, toVideoView(v))
		return
	}
	f, err := h.Attachments.Upload(r.Context(), sess, header.Filename, data, declared)
	if err != nil {
		writeError(w, h.Logger, "upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// Remove удаляет загруженный файл по его публичному URL.
func (h *FileHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "remove file", err)
		return
	}
	if err := h.Attachments.Remove(r.Context(), middleware.SessionFromContext(r.Context()), req.URL); err != nil {
		writeError(w, h.Logger, "remove file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Embed классифицирует вставленную ссылку как встроенное видео.
func (h *FileHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "embed video", err)
		return
	}
	v, err := service.BuildEmbedReference(req.URL, req.Name)
	if err != nil {
		writeError(w, h.Logger, "embed video", err)
		return
	}
	writeJSON(w, http.StatusOK, toVideoView(v))
}

// Serve отдаёт содержимое файла по публичному пути /files/{ownerId}/{name}.
// Файлы загружены пользователями и отдаются с того же origin, что и API,
// поэтому браузеру запрещено угадывать тип и исполнять документ.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	blobPath := chi.URLParam(r, "*")
	b, err := h.Blobs.Get(r.Context(), blobPath)
	if errors.Is(err, blobstore.ErrNotFound) {
		writeError(w, h.Logger, "serve file", &service.NotFoundError{Entity: "file", ID: blobPath})
		return
	}
	if err != nil {
		writeError(w, h.Logger, "serve file", &service.UpstreamError{Op: "blob read", Err: err})
		return
	}
	hdr := w.Header()
	hdr.Set("Content-Type", b.ContentType)
	hdr.Set("Content-Length", strconv.FormatInt(int64(len(b.Data)), 10))
	hdr.Set("Cache-Control", "public, max-age=3600")
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Content-Security-Policy", "sandbox")
	if !inlineSafe(b.ContentType) {
		hdr.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(blobPath)}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Data)
}

// inlineSafe — типы, которые можно показывать в браузере: медиа и PDF.
func inlineSafe(contentType string) bool {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case base == "image/svg+xml":
		return false
	case strings.HasPrefix(base, "image/"), strings.HasPrefix(base, "video/"), strings.HasPrefix(base, "audio/"):
		return true
	default:
		return base == "application/pdf"
	}
}
