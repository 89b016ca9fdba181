package handlers

import (
	"KnowBase/internal/middleware"
	"KnowBase/internal/model"
	"KnowBase/internal/service"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CardHandler — CRUD карточек.
type CardHandler struct {
	CardService *service.CardService
	Logger      *zap.SugaredLogger
}

// NewCardHandler создаёт хендлер карточек
func NewCardHandler(cardService *service.CardService, logger *zap.SugaredLogger) *CardHandler {
	return &CardHandler{CardService: cardService, Logger: logger}
}

// cardRequest — тело POST и PATCH. Отсутствующее поле в PATCH не меняется.
type cardRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Category    *model.Category    `json:"category"`
	Files       *[]model.CardFile  `json:"files"`
	Videos      *[]model.CardVideo `json:"videos"`
	AuthorName  *string            `json:"author_name"`
}

type videoView struct {
	model.CardVideo
	EmbedURL string `json:"embed_url,omitempty"`
}

type cardView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    model.Category   `json:"category"`
	Files       []model.CardFile `json:"files"`
	Videos      []videoView      `json:"videos"`
	AuthorName  *string          `json:"author_name,omitempty"`
	Author      string           `json:"author"`
	OwnerID     int64            `json:"owner_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toVideoView(v model.CardVideo) videoView {
	out := videoView{CardVideo: v}
	if v.Kind == model.VideoEmbed {
		out.EmbedURL = service.EmbedURL(v.URL)
	}
	return out
}

func toCardView(c model.Card, author string) cardView {
	files := c.Files
	if files == nil {
		files = []model.CardFile{}
	}
	videos := make([]videoView, 0, len(c.Videos))
	for _, v := range c.Videos {
		videos = append(videos, toVideoView(v))
	}
	return cardView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Files:       files,
		Videos:      videos,
		AuthorName:  c.AuthorName,
		Author:      author,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
}

func (h *CardHandler) views(ctx context.Context, cards []model.Card) []cardView {
	authors := h.CardService.ResolveAuthors(ctx, cards)
	out := make([]cardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardView(c, authors[c.ID]))
	}
	return out
}

// List отдаёт карточки, новые первыми. Поддерживает ?category= и ?q=.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cards, err := h.CardService.Search(r.Context(), service.ListFilter{
		Category: model.Category(q.Get("category")),
		Query:    q.Get("q"),
	})
	if err != nil {
		writeError(w, h.Logger, "list cards", err)
		return
	}
	writeJSON(w, http.StatusOK, h.views(r.Context(), cards))
}

// Get отдаёт одну карточку.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.CardService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Logger, "get card", err)
		return
	}
	writeJSON(w, http.StatusOK, h.views(r.Context(), []model.Card{*c})[0])
}

// Create создаёт карточку от имени текущего пользователя.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "create card", err)
		return
	}
	f := service.CardFields{AuthorName: req.AuthorName}
	if req.Title != nil {
		f.Title = *req.Title
	}
	if req.Description != nil {
		f.Description = *req.Description
	}
	if req.Category != nil {
		f.Category = *req.Category
	}
	if req.Files != nil {
		f.Files = *req.Files
	}
	if req.Videos != nil {
		f.Videos = *req.Videos
	}

	c, err := h.CardService.Create(r.Context(), middleware.SessionFromContext(r.Context()), f)
	if err != nil {
		writeError(w, h.Logger, "create card", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.views(r.Context(), []model.Card{*c})[0])
}

// Update применяет частичное обновление.
func (h *CardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, "update card", err)
		return
	}
	c, err := h.CardService.Update(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), service.CardPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Files:       req.Files,
		Videos:      req.Videos,
		AuthorName:  req.AuthorName,
	})
	if err != nil {
		writeError(w, h.Logger, "update card", err)
		return
	}
	writeJSON(w, http.StatusOK, h.views(r.Context(), []model.Card{*c})[0])
}

// Delete удаляет карточку.
func (h *CardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.CardService.Delete(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Logger, "delete card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
