// Package llm реализует клиент OpenAI-совместимого endpoint'а chat completions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Роли сообщений чата.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// DefaultModel используется, если модель не задана в конфигурации.
const DefaultModel = "gpt-4o-mini"

// ErrNoChoices — ответ модели без единого варианта.
var ErrNoChoices = errors.New("llm: response has no choices")

// Message — сообщение диалога.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StatusError — endpoint вернул не-2xx. Body хранится для серверного лога.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: status %d", e.Status)
}

// Config — параметры подключения к модели.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client выполняет один вызов chat completions на запрос, без ретраев.
type Client struct {
	http  *resty.Client
	key   string
	model string
}

// NewClient создаёт клиент. Пустой APIKey допустим: Configured вернёт false.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	if cfg.APIKey != "" {
		h.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: h, key: cfg.APIKey, model: cfg.Model}
}

// Configured сообщает, заданы ли учётные данные модели.
func (c *Client) Configured() bool {
	return c != nil && c.key != ""
}

// Complete отправляет диалог и возвращает текст первого варианта как есть.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: c.model, Messages: messages}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	if resp.IsError() {
		return "", &StatusError{Status: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}
