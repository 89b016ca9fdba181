package repo

import (
	"KnowBase/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	r := NewUserRepository(db)
	ctx := context.Background()

	// успешное создание вместе с ролью
	u, err := r.CreateUser(ctx, &model.User{Login: "john", Password: "hash", DisplayName: "John"}, "user")
	assert.NoError(t, err)
	assert.NotZero(t, u.ID)

	roles, err := NewRoleRepository(db).RolesOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles)

	// поиск по логину — найдено
	got, err := r.GetUserByLogin(ctx, "john")
	assert.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// уникальный логин — вторая вставка должна дать ошибку
	_, err = r.CreateUser(ctx, &model.User{Login: "john", Password: "x"}, "admin")
	assert.Error(t, err)
	roles, err = NewRoleRepository(db).RolesOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles)

	// поиск несуществующего — ожидаем gorm.ErrRecordNotFound
	got, err = r.GetUserByLogin(ctx, "doesnotexist")
	assert.Nil(t, got)
	assert.Equal(t, gorm.ErrRecordNotFound, err)
}

// Если роль не записалась, аккаунт тоже не должен остаться.
func TestUserRepository_CreateUser_RollsBackWithoutRole(t *testing.T) {
	db := newTestDB(t)
	r := NewUserRepository(db)
	ctx := context.Background()

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_role", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Name == "RoleAssignment" {
			_ = tx.AddError(errors.New("role insert failed"))
		}
	})
	require.NoError(t, err)

	_, err = r.CreateUser(ctx, &model.User{Login: "kate", Password: "hash"}, "user")
	require.Error(t, err)

	_, err = r.GetUserByLogin(ctx, "kate")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var n int64
	require.NoError(t, db.Model(&model.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUserRepository_GetByID_UpdateDisplayName(t *testing.T) {
	db := newTestDB(t)
	r := NewUserRepository(db)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, &model.User{Login: "ann", Password: "hash"}, "user")
	assert.NoError(t, err)

	assert.NoError(t, r.UpdateDisplayName(ctx, u.ID, "Ann Lee"))
	got, err := r.GetUserByID(ctx, u.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Ann Lee", got.DisplayName)

	assert.ErrorIs(t, r.UpdateDisplayName(ctx, 999, "x"), gorm.ErrRecordNotFound)
	_, err = r.GetUserByID(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db := newTestDB(t)
	r := NewUserRepository(db)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, &model.User{Login: "max", Password: "old-hash"}, "user")
	require.NoError(t, err)

	require.NoError(t, r.UpdatePassword(ctx, u.ID, "new-hash"))
	got, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.Password)

	assert.ErrorIs(t, r.UpdatePassword(ctx, 999, "x"), gorm.ErrRecordNotFound)
}

// gormLogSink собирает строки логгера gorm.
type gormLogSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *gormLogSink) Printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, fmt.Sprintf(format, args...))
}

func (s *gormLogSink) joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}

// Промах по логину или id — не ошибка БД и не попадает в лог gorm.
func TestUserRepository_MissDoesNotLogError(t *testing.T) {
	sink := &gormLogSink{}
	db := newTestDB(t).Session(&gorm.Session{
		Logger: logger.New(sink, logger.Config{LogLevel: logger.Warn, Colorful: false}),
	})
	r := NewUserRepository(db)
	ctx := context.Background()

	_, err := r.GetUserByLogin(ctx, "ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = r.GetUserByID(ctx, 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.NotContains(t, sink.joined(), "record not found")
}
