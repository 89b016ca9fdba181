package repo

import (
	"KnowBase/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository хранит назначения ролей. Действующую роль выбирает access.Gate.
type RoleRepository interface {
	// RolesOf возвращает все назначенные аккаунту роли (возможно, пустой список).
	RolesOf(ctx context.Context, userID int64) ([]string, error)
	// Grant идемпотентно добавляет роль.
	Grant(ctx context.Context, userID int64, role string) error
	// Revoke удаляет роль; отсутствие строки ошибкой не считается.
	Revoke(ctx context.Context, userID int64, role string) error
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepository создаёт gorm-реализацию RoleRepository.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) RolesOf(ctx context.Context, userID int64) ([]string, error) {
	var roles []string
	if err := r.db.WithContext(ctx).
		Model(&model.RoleAssignment{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepo) Grant(ctx context.Context, userID int64, role string) error {
	ra := &model.RoleAssignment{UserID: userID, Role: role}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ra).Error
}

func (r *roleRepo) Revoke(ctx context.Context, userID int64, role string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&model.RoleAssignment{}).Error
}
