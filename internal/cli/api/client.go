// Package api содержит HTTP-клиент CLI к серверу базы знаний.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/cli/repo"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

const requestTimeout = 30 * time.Second

// ErrNotLoggedIn — команда требует входа, а токена нет.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError — ответ сервера со статусом 4xx/5xx.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server status %d", e.Status)
	}
	return fmt.Sprintf("server status %d: %s", e.Status, e.Message)
}

// StatusOf возвращает HTTP-статус из APIError или 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

type errorBody struct {
	Error string `json:"error"`
}

// AuthResult — ответ регистрации и входа.
type AuthResult struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Token string `json:"token"`
}

// Client ходит в API от имени сохранённой сессии.
type Client struct {
	http   *resty.Client
	base   string
	tokens repo.TokenStore
}

// NewClient создаёт клиент для serverURL вида http://host:port.
func NewClient(serverURL string, tokens repo.TokenStore) *Client {
	base := strings.TrimRight(serverURL, "/")
	h := resty.New().
		SetBaseURL(base).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: h, base: base, tokens: tokens}
}

// request собирает запрос с Bearer-токеном, если он сохранён
func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if c.tokens != nil {
		if tok, err := c.tokens.Load(); err == nil && tok != "" {
			r.SetAuthToken(tok)
		}
	}
	return r
}

func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	msg := strings.TrimSpace(resp.String())
	if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
		msg = eb.Error
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}

// Register создаёт учётную запись и сохраняет выданный токен.
func (c *Client) Register(ctx context.Context, login, password, displayName string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/user/register", map[string]string{
		"login":        login,
		"password":     password,
		"display_name": displayName,
	})
}

// Login входит и сохраняет выданный токен.
func (c *Client) Login(ctx context.Context, login, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/user/login", map[string]string{
		"login":    login,
		"password": password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (AuthResult, error) {
	var out AuthResult
	resp, err := c.http.R().SetContext(ctx).SetError(&errorBody{}).SetBody(body).SetResult(&out).Post(path)
	if err := c.check(resp, err); err != nil {
		return AuthResult{}, err
	}
	if out.Token == "" {
		return AuthResult{}, errors.New("no token in response")
	}
	if c.tokens != nil {
		if err := c.tokens.Save(out.Token); err != nil {
			return AuthResult{}, fmt.Errorf("saving auth: %w", err)
		}
	}
	return out, nil
}

// Logout отзывает токен на сервере и удаляет его локально.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.request(ctx).Post("/api/user/logout")
	if err := c.check(resp, err); err != nil {
		return err
	}
	if c.tokens != nil {
		return c.tokens.Clear()
	}
	return nil
}

// Me возвращает профиль текущей сессии.
func (c *Client) Me(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	resp, err := c.request(ctx).SetResult(&p).Get("/api/user/me")
	return p, c.check(resp, err)
}

// ListCards читает карточки; непустые category и query сужают выборку.
func (c *Client) ListCards(ctx context.Context, category, query string) ([]model.Card, error) {
	var cards []model.Card
	r := c.request(ctx).SetResult(&cards)
	if category != "" {
		r.SetQueryParam("category", category)
	}
	if query != "" {
		r.SetQueryParam("q", query)
	}
	resp, err := r.Get("/api/cards")
	return cards, c.check(resp, err)
}

// GetCard читает карточку по id.
func (c *Client) GetCard(ctx context.Context, id string) (model.Card, error) {
	var card model.Card
	resp, err := c.request(ctx).SetPathParam("id", id).SetResult(&card).Get("/api/cards/{id}")
	return card, c.check(resp, err)
}

// CreateCard создаёт карточку.
func (c *Client) CreateCard(ctx context.Context, in model.CardInput) (model.Card, error) {
	var card model.Card
	resp, err := c.request(ctx).SetBody(in).SetResult(&card).Post("/api/cards")
	return card, c.check(resp, err)
}

// UpdateCard применяет частичное изменение.
func (c *Client) UpdateCard(ctx context.Context, id string, in model.CardInput) (model.Card, error) {
	var card model.Card
	resp, err := c.request(ctx).SetPathParam("id", id).SetBody(in).SetResult(&card).Patch("/api/cards/{id}")
	return card, c.check(resp, err)
}

// DeleteCard удаляет карточку.
func (c *Client) DeleteCard(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete("/api/cards/{id}")
	return c.check(resp, err)
}

// UploadFile загружает локальный файл как вложение.
func (c *Client) UploadFile(ctx context.Context, path string) (model.CardFile, error) {
	var f model.CardFile
	resp, err := c.request(ctx).SetFile("file", path).SetResult(&f).Post("/api/files/upload")
	return f, c.check(resp, err)
}

// UploadVideo загружает локальный видеофайл.
func (c *Client) UploadVideo(ctx context.Context, path string) (model.CardVideo, error) {
	var v model.CardVideo
	resp, err := c.request(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{"kind": "video"}).
		SetResult(&v).
		Post("/api/files/upload")
	return v, c.check(resp, err)
}

// EmbedVideo регистрирует ссылку на внешнее видео.
func (c *Client) EmbedVideo(ctx context.Context, rawURL, name string) (model.CardVideo, error) {
	var v model.CardVideo
	resp, err := c.request(ctx).
		SetBody(map[string]string{"url": rawURL, "name": name}).
		SetResult(&v).
		Post("/api/videos/embed")
	return v, c.check(resp, err)
}

// Ask задаёт вопрос ассистенту.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	resp, err := c.request(ctx).SetBody(map[string]string{"message": message}).SetResult(&out).Post("/api/assistant")
	return out.Response, c.check(resp, err)
}

// SetRole выдаёт (grant) или отзывает роль пользователя. Нужна роль admin.
func (c *Client) SetRole(ctx context.Context, userID int64, role string, grant bool) error {
	resp, err := c.request(ctx).
		SetBody(map[string]any{"user_id": userID, "role": role, "grant": grant}).
		Put("/api/admin/roles")
	return c.check(resp, err)
}

// Watch подписывается на изменения карточек по WebSocket и вызывает fn на каждое событие
// до отмены ctx или разрыва соединения.
func (c *Client) Watch(ctx context.Context, fn func(model.ChangeEvent)) error {
	u, err := url.Parse(c.base + "/api/cards/ws")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	hdr := http.Header{}
	if c.tokens != nil {
		if tok, err := c.tokens.Load(); err == nil && tok != "" {
			hdr.Set("Authorization", "Bearer "+tok)
		}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), hdr)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	defer conn.Close()

	// закрываем соединение при отмене, чтобы разблокировать чтение
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev model.ChangeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ws read: %w", err)
		}
		fn(ev)
	}
}
