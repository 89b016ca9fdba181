package repo

import (
	"KnowBase/internal/model"
	"context"

	"gorm.io/gorm"
)

// UserRepository — доступ к учётным записям и профилям.
type UserRepository interface {
	// CreateUser вставляет аккаунт и его первую роль в одной транзакции.
	CreateUser(ctx context.Context, user *model.User, role string) (*model.User, error)
	// GetUserByLogin возвращает (nil, gorm.ErrRecordNotFound), если логин не найден.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id int64, name string) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository создаёт gorm-реализацию UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User, role string) (*model.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&model.RoleAssignment{UserID: user.ID, Role: role}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	// Find вместо First: отсутствие логина — штатный случай, gorm не должен писать его в лог
	tx := r.db.WithContext(ctx).Where("login = ?", login).Limit(1).Find(&u)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	tx := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&u)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *userRepo) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	return r.updateColumn(ctx, id, "display_name", name)
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.updateColumn(ctx, id, "password", hash)
}

func (r *userRepo) updateColumn(ctx context.Context, id int64, column string, value any) error {
	tx := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update(column, value)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
