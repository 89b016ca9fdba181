package service

import (
	"KnowBase/internal/access"
	"KnowBase/internal/blobstore"
	"KnowBase/internal/model"
	"KnowBase/internal/session"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// BlobStore — внешнее хранилище байтов вложений.
type BlobStore interface {
	// Put сохраняет данные и возвращает публичный URL. Для занятого пути возвращает blobstore.ErrExists.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
	// PathOf извлекает путь из публичного URL этого хранилища.
	PathOf(url string) (string, bool)
}

const (
	octetStream = "application/octet-stream"
	// сколько раз пробуем следующий миллисекундный ключ при коллизии пути
	putAttempts = 3
)

// AttachmentService управляет ссылками на вложения карточек. Байты живут в BlobStore,
// в карточке хранятся только метаданные.
type AttachmentService struct {
	store    BlobStore
	gate     RoleResolver
	logger   *zap.SugaredLogger
	maxBytes int64
	now      func() time.Time
}

// NewAttachmentService создаёт сервис вложений. maxBytes <= 0 отключает ограничение размера.
func NewAttachmentService(store BlobStore, gate RoleResolver, maxBytes int64, logger *zap.SugaredLogger) *AttachmentService {
	return &AttachmentService{
		store:    store,
		gate:     gate,
		logger:   logger,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Upload сохраняет файл по ключу {ownerId}/{unixMillis}.{ext} и возвращает его метаданные.
func (s *AttachmentService) Upload(ctx context.Context, sess *session.Session, fileName string, data []byte, declaredType string) (model.CardFile, error) {
	if err := s.checkUploadRights(ctx, sess); err != nil {
		return model.CardFile{}, err
	}
	if err := s.checkSize(data); err != nil {
		return model.CardFile{}, err
	}

	mime := resolveMIME(data, declaredType)
	u, err := s.put(ctx, sess.AccountID, fileName, data, mime)
	if err != nil {
		return model.CardFile{}, err
	}
	name := filepath.Base(fileName)
	if name == "." || name == "/" {
		name = ""
	}
	return model.CardFile{Name: name, URL: u, MimeType: mime, SizeBytes: int64(len(data))}, nil
}

// UploadVideo загружает видеофайл и возвращает ссылку вида upload.
func (s *AttachmentService) UploadVideo(ctx context.Context, sess *session.Session, fileName string, data []byte, declaredType string) (model.CardVideo, error) {
	if err := s.checkUploadRights(ctx, sess); err != nil {
		return model.CardVideo{}, err
	}
	if err := s.checkSize(data); err != nil {
		return model.CardVideo{}, err
	}
	mime := resolveMIME(data, declaredType)
	if !strings.HasPrefix(mime, "video/") {
		return model.CardVideo{}, &ValidationError{Field: "file", Reason: "not a video: " + mime}
	}
	u, err := s.put(ctx, sess.AccountID, fileName, data, mime)
	if err != nil {
		return model.CardVideo{}, err
	}
	return model.CardVideo{Kind: model.VideoUpload, URL: u, Name: filepath.Base(fileName)}, nil
}

// Remove удаляет blob по публичному URL. Разрешено admin и владельцу префикса {ownerId}/.
func (s *AttachmentService) Remove(ctx context.Context, sess *session.Session, rawURL string) error {
	role, err := s.gate.ResolveRole(ctx, sess)
	if err != nil {
		return &UpstreamError{Op: "role lookup", Err: err}
	}
	if !access.CanEditAny(role) {
		return &AuthorizationError{Action: "remove file", Anonymous: sess == nil}
	}
	path, ok := s.store.PathOf(rawURL)
	if !ok {
		return &ValidationError{Field: "url", Reason: "not a stored file"}
	}
	ownerPart, _, _ := strings.Cut(path, "/")
	owner, err := strconv.ParseInt(ownerPart, 10, 64)
	if err != nil {
		return &ValidationError{Field: "url", Reason: "malformed file path"}
	}
	if !access.CanDelete(role, owner, sess.AccountID) {
		return &AuthorizationError{Action: "remove file"}
	}
	if err := s.store.Delete(ctx, path); err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return &NotFoundError{Entity: "file", ID: path}
		}
		s.logger.Errorw("blob delete failed", "path", path, "error", err)
		return &UploadError{Path: path, Err: err}
	}
	return nil
}

func (s *AttachmentService) checkUploadRights(ctx context.Context, sess *session.Session) error {
	role, err := s.gate.ResolveRole(ctx, sess)
	if err != nil {
		return &UpstreamError{Op: "role lookup", Err: err}
	}
	if !access.CanCreate(role) {
		return &AuthorizationError{Action: "upload file", Anonymous: sess == nil}
	}
	return nil
}

func (s *AttachmentService) checkSize(data []byte) error {
	if len(data) == 0 {
		return &ValidationError{Field: "file", Reason: "empty file"}
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("file exceeds %d bytes", s.maxBytes)}
	}
	return nil
}

func (s *AttachmentService) put(ctx context.Context, ownerID int64, fileName string, data []byte, mime string) (string, error) {
	ext := fileExt(fileName, mime)
	ts := s.now().UnixMilli()
	var path string
	for i := 0; i < putAttempts; i++ {
		path = fmt.Sprintf("%d/%d.%s", ownerID, ts+int64(i), ext)
		u, err := s.store.Put(ctx, path, data, mime)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, blobstore.ErrExists) {
			s.logger.Errorw("blob upload failed", "path", path, "error", err)
			return "", &UploadError{Path: path, Err: err}
		}
	}
	return "", &UploadError{Path: path, Err: blobstore.ErrExists}
}

// activeContent — типы, которые браузер исполняет как документ со скриптами.
var activeContent = map[string]bool{
	"text/html":             true,
	"image/svg+xml":         true,
	"application/xhtml+xml": true,
}

// resolveMIME берёт заявленный тип, а если он пуст или неинформативен, определяет по содержимому.
// Активное содержимое сохраняется как application/octet-stream.
func resolveMIME(data []byte, declared string) string {
	resolved := strings.TrimSpace(declared)
	if resolved == "" || resolved == octetStream {
		resolved = mimetype.Detect(data).String()
	}
	base := strings.ToLower(strings.TrimSpace(strings.Split(resolved, ";")[0]))
	if activeContent[base] {
		return octetStream
	}
	return resolved
}

// fileExt — расширение из имени файла, иначе из MIME, иначе bin.
func fileExt(fileName, mime string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."); ext != "" {
		return ext
	}
	if m := mimetype.Lookup(strings.TrimSpace(strings.Split(mime, ";")[0])); m != nil {
		if ext := strings.TrimPrefix(m.Extension(), "."); ext != "" {
			return ext
		}
	}
	return "bin"
}

// BuildEmbedReference превращает вставленную ссылку в видео вида embed. URL сохраняется как есть.
func BuildEmbedReference(rawURL, name string) (model.CardVideo, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.CardVideo{}, &ValidationError{Field: "url", Reason: "must be an http(s) URL"}
	}
	return model.CardVideo{Kind: model.VideoEmbed, URL: rawURL, Name: strings.TrimSpace(name)}, nil
}

var (
	youtubeID = regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([^&?#/\s]+)`)
	vimeoID   = regexp.MustCompile(`vimeo\.com/(\d+)`)
)

// EmbedURL переводит ссылку YouTube или Vimeo в адрес встраиваемого плеера.
// Прочие ссылки возвращаются без изменений.
func EmbedURL(raw string) string {
	if m := youtubeID.FindStringSubmatch(raw); m != nil {
		return "https://www.youtube.com/embed/" + m[1]
	}
	if strings.Contains(raw, "player.vimeo.com/") {
		return raw
	}
	if m := vimeoID.FindStringSubmatch(raw); m != nil {
		return "https://player.vimeo.com/video/" + m[1]
	}
	return raw
}
