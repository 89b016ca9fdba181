// errors.go — типизированные ошибки сервисного слоя.
// Каждая ошибка сопоставима через errors.As (по типу) и errors.Is (по sentinel).
package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream failure")
	ErrConfiguration = errors.New("missing configuration")
	ErrUpload        = errors.New("upload failed")

	// ErrLoginTaken — логин уже занят.
	ErrLoginTaken = errors.New("login already taken")
	// ErrInvalidCredentials — неверный логин или пароль.
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// ValidationError — некорректная форма входных данных; мутация не выполнялась.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AuthorizationError — у вызывающего нет нужной роли или владения.
type AuthorizationError struct {
	Action    string
	Anonymous bool
}

func (e *AuthorizationError) Error() string {
	return "not authorized to " + e.Action
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrAuthorization }

// NotFoundError — запрошенный id отсутствует.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UpstreamError — сбой внешнего хранилища, blob-хранилища или модели.
// Status и Body заполняются для ответов модели с не-2xx кодом.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	msg := "upstream " + e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error        { return e.Err }
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// ConfigurationError — не задан обязательный внешний параметр. Не ретраится.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Setting + " is not set"
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// UploadError — blob-хранилище не приняло файл.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error        { return e.Err }
func (e *UploadError) Is(target error) bool { return target == ErrUpload }
