package repo

import (
	"KnowBase/internal/model"
	"context"

	"gorm.io/gorm"
)

// CardRepository — контракт хранилища карточек для слоя сервиса.
// Отсутствующая запись сообщается как gorm.ErrRecordNotFound.
type CardRepository interface {
	// ListAll возвращает все карточки, новые (по created_at) первыми.
	ListAll(ctx context.Context) ([]model.Card, error)
	GetByID(ctx context.Context, id string) (*model.Card, error)
	Create(ctx context.Context, c *model.Card) error
	// Update перезаписывает изменяемые поля карточки целиком (last-write-wins).
	Update(ctx context.Context, c *model.Card) error
	Delete(ctx context.Context, id string) error
}

type cardRepo struct {
	db *gorm.DB
}

// NewCardRepository создаёт gorm-реализацию CardRepository.
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepo{db: db}
}

func (r *cardRepo) ListAll(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *cardRepo) GetByID(ctx context.Context, id string) (*model.Card, error) {
	var c model.Card
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cardRepo) Create(ctx context.Context, c *model.Card) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cardRepo) Update(ctx context.Context, c *model.Card) error {
	// id, owner_id и created_at не переписываем никогда
	tx := r.db.WithContext(ctx).
		Model(&model.Card{}).
		Where("id = ?", c.ID).
		Select("title", "description", "category", "files", "videos", "author_name", "updated_at").
		Updates(c)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cardRepo) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Card{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
