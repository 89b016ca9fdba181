// Package blobstore хранит байты вложений в БД с публичными URL вида {PUBLIC_URL}/files/{path}.
package blobstore

import (
	"KnowBase/internal/model"
	"KnowBase/internal/repo"
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrExists — путь уже занят; перезапись не допускается.
var ErrExists = errors.New("blob already exists")

// ErrNotFound — по пути ничего не хранится.
var ErrNotFound = errors.New("blob not found")

// FilesPrefix — префикс URL, под которым сервер раздаёт содержимое.
const FilesPrefix = "/files/"

// DBStore хранит blob'ы в таблице blobs через BlobRepository.
type DBStore struct {
	repo    repo.BlobRepository
	baseURL string
}

// NewDBStore создаёт хранилище. publicURL задаёт внешний адрес сервера без завершающего слеша.
func NewDBStore(r repo.BlobRepository, publicURL string) *DBStore {
	return &DBStore{repo: r, baseURL: strings.TrimRight(publicURL, "/")}
}

// Put сохраняет данные по пути и возвращает публичный URL.
func (s *DBStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	created, err := s.repo.CreateIfAbsent(ctx, &model.Blob{
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	})
	if err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	if !created {
		return "", ErrExists
	}
	return s.URLFor(path), nil
}

// Get возвращает blob по пути.
func (s *DBStore) Get(ctx context.Context, path string) (*model.Blob, error) {
	b, err := s.repo.Get(ctx, path)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load blob: %w", err)
	}
	return b, nil
}

// Delete удаляет blob по пути.
func (s *DBStore) Delete(ctx context.Context, path string) error {
	if err := s.repo.Delete(ctx, path); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// URLFor строит публичный URL пути.
func (s *DBStore) URLFor(path string) string {
	return s.baseURL + FilesPrefix + path
}

// PathOf извлекает путь из публичного URL. false, если URL не указывает на это хранилище.
func (s *DBStore) PathOf(url string) (string, bool) {
	i := strings.Index(url, FilesPrefix)
	if i < 0 {
		return "", false
	}
	if s.baseURL != "" && !strings.HasPrefix(url, s.baseURL+FilesPrefix) {
		return "", false
	}
	path := url[i+len(FilesPrefix):]
	if path == "" || strings.Contains(path, "..") {
		return "", false
	}
	return path, true
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
