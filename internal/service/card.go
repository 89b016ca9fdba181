package service

import (
	"KnowBase/internal/access"
	"KnowBase/internal/livesync"
	"KnowBase/internal/model"
	"KnowBase/internal/repo"
	"KnowBase/internal/session"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoleResolver — часть access.Gate, нужная сервисам.
type RoleResolver interface {
	ResolveRole(ctx context.Context, s *session.Session) (access.Role, error)
}

// CardFields — поля новой карточки.
type CardFields struct {
	Title       string
	Description string
	Category    model.Category
	Files       []model.CardFile
	Videos      []model.CardVideo
	AuthorName  *string
}

// CardPatch — частичное обновление. nil-поле означает "не менять".
// Пустая строка в AuthorName сбрасывает переопределение автора.
type CardPatch struct {
	Title       *string
	Description *string
	Category    *model.Category
	Files       *[]model.CardFile
	Videos      *[]model.CardVideo
	AuthorName  *string
}

// ListFilter — фильтр списка: точная категория и подстрока без учёта регистра.
type ListFilter struct {
	Category model.Category
	Query    string
}

// CardService — хранилище карточек: CRUD с проверкой прав и публикацией изменений.
type CardService struct {
	repo     repo.CardRepository
	gate     RoleResolver
	broker   livesync.Broker
	profiles ProfileDirectory
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewCardService создаёт сервис карточек. broker и profiles могут быть nil.
func NewCardService(r repo.CardRepository, gate RoleResolver, broker livesync.Broker, profiles ProfileDirectory, logger *zap.SugaredLogger) *CardService {
	return &CardService{
		repo:     r,
		gate:     gate,
		broker:   broker,
		profiles: profiles,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// List возвращает весь корпус карточек, новые первыми.
func (s *CardService) List(ctx context.Context) ([]model.Card, error) {
	cards, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Errorw("list cards failed", "error", err)
		return nil, &UpstreamError{Op: "card list", Err: err}
	}
	return cards, nil
}

// Search применяет фильтр категории и текстовый поиск поверх List.
func (s *CardService) Search(ctx context.Context, f ListFilter) ([]model.Card, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, &ValidationError{Field: "category", Reason: "unknown category " + string(f.Category)}
	}
	cards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if f.Category == "" && q == "" {
		return cards, nil
	}
	out := make([]model.Card, 0, len(cards))
	for _, c := range cards {
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Title), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) &&
			!strings.Contains(strings.ToLower(string(c.Category)), q) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Get возвращает карточку по id.
func (s *CardService) Get(ctx context.Context, id string) (*model.Card, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "card", ID: id}
	}
	if err != nil {
		s.logger.Errorw("get card failed", "id", id, "error", err)
		return nil, &UpstreamError{Op: "card get", Err: err}
	}
	return c, nil
}

// Create создаёт карточку от имени владельца сессии.
func (s *CardService) Create(ctx context.Context, sess *session.Session, f CardFields) (*model.Card, error) {
	role, err := s.resolveRole(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !access.CanCreate(role) {
		return nil, &AuthorizationError{Action: "create card", Anonymous: sess == nil}
	}
	if err := validateFields(f); err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Card{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Category:    f.Category,
		Files:       nonNilFiles(f.Files),
		Videos:      nonNilVideos(f.Videos),
		AuthorName:  normalizeAuthor(f.AuthorName),
		OwnerID:     sess.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Errorw("create card failed", "owner_id", sess.AccountID, "error", err)
		return nil, &UpstreamError{Op: "card create", Err: err}
	}
	s.publish(ctx, livesync.KindCreated, c.ID)
	return c, nil
}

// Update применяет частичное обновление. Не указанные поля не меняются, updated_at строго растёт.
func (s *CardService) Update(ctx context.Context, sess *session.Session, id string, p CardPatch) (*model.Card, error) {
	role, err := s.resolveRole(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !access.CanEditAny(role) {
		return nil, &AuthorizationError{Action: "edit card", Anonymous: sess == nil}
	}
	if err := validatePatch(p); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanEdit(role, c.OwnerID, sess.AccountID) {
		return nil, &AuthorizationError{Action: "edit card"}
	}

	applyPatch(c, p)
	c.UpdatedAt = s.advance(c.UpdatedAt)

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "card", ID: id}
		}
		s.logger.Errorw("update card failed", "id", id, "error", err)
		return nil, &UpstreamError{Op: "card update", Err: err}
	}
	s.publish(ctx, livesync.KindUpdated, c.ID)
	return c, nil
}

// Delete удаляет карточку безвозвратно. Вложения в blob-хранилище не трогаются.
func (s *CardService) Delete(ctx context.Context, sess *session.Session, id string) error {
	role, err := s.resolveRole(ctx, sess)
	if err != nil {
		return err
	}
	if !access.CanEditAny(role) {
		return &AuthorizationError{Action: "delete card", Anonymous: sess == nil}
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanDelete(role, c.OwnerID, sess.AccountID) {
		return &AuthorizationError{Action: "delete card"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "card", ID: id}
		}
		s.logger.Errorw("delete card failed", "id", id, "error", err)
		return &UpstreamError{Op: "card delete", Err: err}
	}
	s.publish(ctx, livesync.KindDeleted, id)
	return nil
}

// ResolveAuthors возвращает отображаемое имя автора для каждой карточки (по id карточки).
// Явный AuthorName важнее профиля владельца; неизвестный владелец даёт пустую строку.
func (s *CardService) ResolveAuthors(ctx context.Context, cards []model.Card) map[string]string {
	out := make(map[string]string, len(cards))
	byOwner := make(map[int64]string)
	for _, c := range cards {
		if c.AuthorName != nil && *c.AuthorName != "" {
			out[c.ID] = *c.AuthorName
			continue
		}
		name, ok := byOwner[c.OwnerID]
		if !ok {
			name = s.lookupName(ctx, c.OwnerID)
			byOwner[c.OwnerID] = name
		}
		out[c.ID] = name
	}
	return out
}

func (s *CardService) lookupName(ctx context.Context, ownerID int64) string {
	if s.profiles == nil {
		return ""
	}
	p, err := s.profiles.Lookup(ctx, ownerID)
	if err != nil {
		// владелец мог быть удалён, это допустимо
		s.logger.Debugw("author lookup failed", "owner_id", ownerID, "error", err)
		return ""
	}
	return p.DisplayName
}

func (s *CardService) resolveRole(ctx context.Context, sess *session.Session) (access.Role, error) {
	role, err := s.gate.ResolveRole(ctx, sess)
	if err != nil {
		s.logger.Errorw("resolve role failed", "error", err)
		return access.RoleNone, &UpstreamError{Op: "role lookup", Err: err}
	}
	return role, nil
}

// advance возвращает метку времени строго позже prev.
func (s *CardService) advance(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// publish сообщает об изменении. Ошибка публикации не отменяет уже выполненную запись.
func (s *CardService) publish(ctx context.Context, kind livesync.Kind, id string) {
	if s.broker == nil {
		return
	}
	ev := livesync.Event{Topic: livesync.TopicCards, Kind: kind, ID: id, At: s.now()}
	if err := s.broker.Publish(ctx, ev); err != nil {
		s.logger.Warnw("publish card change failed", "id", id, "kind", kind, "error", err)
	}
}

func validateFields(f CardFields) error {
	if strings.TrimSpace(f.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(f.Description) == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if !f.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(f.Category)}
	}
	if err := validateFiles(f.Files); err != nil {
		return err
	}
	return validateVideos(f.Videos)
}

func validatePatch(p CardPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if p.Category != nil && !p.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown category " + string(*p.Category)}
	}
	if p.Files != nil {
		if err := validateFiles(*p.Files); err != nil {
			return err
		}
	}
	if p.Videos != nil {
		return validateVideos(*p.Videos)
	}
	return nil
}

func validateFiles(files []model.CardFile) error {
	for _, f := range files {
		if f.Name == "" || f.URL == "" {
			return &ValidationError{Field: "files", Reason: "name and url are required"}
		}
		if f.SizeBytes < 0 {
			return &ValidationError{Field: "files", Reason: "size must not be negative"}
		}
	}
	return nil
}

func validateVideos(videos []model.CardVideo) error {
	for _, v := range videos {
		if v.Kind != model.VideoUpload && v.Kind != model.VideoEmbed {
			return &ValidationError{Field: "videos", Reason: "kind must be upload or embed"}
		}
		if v.URL == "" {
			return &ValidationError{Field: "videos", Reason: "url is required"}
		}
	}
	return nil
}

func applyPatch(c *model.Card, p CardPatch) {
	if p.Title != nil {
		c.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Files != nil {
		c.Files = nonNilFiles(*p.Files)
	}
	if p.Videos != nil {
		c.Videos = nonNilVideos(*p.Videos)
	}
	if p.AuthorName != nil {
		c.AuthorName = normalizeAuthor(p.AuthorName)
	}
}

func normalizeAuthor(name *string) *string {
	if name == nil {
		return nil
	}
	v := strings.TrimSpace(*name)
	if v == "" {
		return nil
	}
	return &v
}

func nonNilFiles(files []model.CardFile) []model.CardFile {
	if files == nil {
		return []model.CardFile{}
	}
	return files
}

func nonNilVideos(videos []model.CardVideo) []model.CardVideo {
	if videos == nil {
		return []model.CardVideo{}
	}
	return videos
}
