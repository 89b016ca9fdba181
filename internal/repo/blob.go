package repo

import (
	"KnowBase/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlobRepository минимальный контракт доступа к Blob.
type BlobRepository interface {
	// CreateIfAbsent пытается создать запись. Занятый путь оставляет как есть.
	// Возвращает created=true если запись была создана в этой операции.
	CreateIfAbsent(ctx context.Context, b *model.Blob) (created bool, err error)
	// Get возвращает gorm.ErrRecordNotFound для неизвестного пути.
	Get(ctx context.Context, path string) (*model.Blob, error)
	Delete(ctx context.Context, path string) error
}

type blobRepo struct {
	db *gorm.DB
}

// NewBlobRepository создаёт реализацию репозитория для Blob.
func NewBlobRepository(db *gorm.DB) BlobRepository {
	return &blobRepo{db: db}
}

// CreateIfAbsent создает Blob в БД, если его ещё нет.
func (r *blobRepo) CreateIfAbsent(ctx context.Context, b *model.Blob) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoNothing: true,
	}).Create(b)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *blobRepo) Get(ctx context.Context, path string) (*model.Blob, error) {
	var b model.Blob
	if err := r.db.WithContext(ctx).Where("path = ?", path).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *blobRepo) Delete(ctx context.Context, path string) error {
	tx := r.db.WithContext(ctx).Where("path = ?", path).Delete(&model.Blob{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
