package service

import (
	"KnowBase/internal/access"
	"KnowBase/internal/model"
	"KnowBase/internal/repo"
	"KnowBase/internal/session"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Profile — запись справочника профилей.
type Profile struct {
	AccountID   int64
	DisplayName string
}

// ProfileDirectory разрешает id аккаунта в отображаемое имя.
type ProfileDirectory interface {
	Lookup(ctx context.Context, accountID int64) (Profile, error)
}

// RoleNotifier — получатель уведомлений о смене ролей (провайдер сессий).
type RoleNotifier interface {
	NotifyRoleChanged(accountID int64)
}

// UserService — регистрация, вход, профили и назначение ролей.
type UserService struct {
	repo     repo.UserRepository
	roles    repo.RoleRepository
	notifier RoleNotifier
	logger   *zap.SugaredLogger

	defaultRole    access.Role
	bootstrapAdmin string
}

// UserServiceOptions — роль по умолчанию для новых аккаунтов и логин первого администратора.
type UserServiceOptions struct {
	DefaultRole    access.Role
	BootstrapAdmin string
}

// NewUserService создаёт сервис пользователей.
func NewUserService(r repo.UserRepository, roles repo.RoleRepository, notifier RoleNotifier, logger *zap.SugaredLogger, opts UserServiceOptions) *UserService {
	if opts.DefaultRole == access.RoleNone {
		opts.DefaultRole = access.RoleUser
	}
	return &UserService{
		repo:           r,
		roles:          roles,
		notifier:       notifier,
		logger:         logger,
		defaultRole:    opts.DefaultRole,
		bootstrapAdmin: opts.BootstrapAdmin,
	}
}

// Register создаёт аккаунт и назначает ему роль по умолчанию
// (admin — если логин совпадает с BOOTSTRAP_ADMIN). Аккаунт и роль пишутся одной транзакцией.
func (s *UserService) Register(ctx context.Context, login, password, displayName string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, &ValidationError{Field: "login", Reason: "required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Reason: "required"}
	}

	existing, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &UpstreamError{Op: "user lookup", Err: err}
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = login
	}
	role := s.defaultRole
	if s.bootstrapAdmin != "" && login == s.bootstrapAdmin {
		role = access.RoleAdmin
	}
	user, err := s.repo.CreateUser(ctx, &model.User{Login: login, Password: string(hash), DisplayName: displayName}, string(role))
	if err != nil {
		if s.loginTaken(ctx, login, err) {
			return nil, ErrLoginTaken
		}
		return nil, &UpstreamError{Op: "user create", Err: err}
	}
	s.logger.Infow("user registered", "user_id", user.ID, "role", role)
	return user, nil
}

// loginTaken отличает гонку двух регистраций одного логина от прочих ошибок вставки.
// Не все драйверы переводят нарушение уникального индекса в gorm.ErrDuplicatedKey,
// поэтому при любой ошибке логин перепроверяется.
func (s *UserService) loginTaken(ctx context.Context, login string, createErr error) bool {
	if errors.Is(createErr, gorm.ErrDuplicatedKey) {
		return true
	}
	existing, err := s.repo.GetUserByLogin(ctx, login)
	return err == nil && existing != nil
}

// Login проверяет логин и пароль.
func (s *UserService) Login(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.repo.GetUserByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && user == nil) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, &UpstreamError{Op: "user lookup", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Me возвращает аккаунт текущей сессии.
func (s *UserService) Me(ctx context.Context, sess *session.Session) (*model.User, error) {
	if sess == nil {
		return nil, &AuthorizationError{Action: "read profile", Anonymous: true}
	}
	user, err := s.repo.GetUserByID(ctx, sess.AccountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "user", ID: fmt.Sprint(sess.AccountID)}
	}
	if err != nil {
		return nil, &UpstreamError{Op: "user lookup", Err: err}
	}
	return user, nil
}

// UpdateDisplayName меняет имя в профиле текущего пользователя.
func (s *UserService) UpdateDisplayName(ctx context.Context, sess *session.Session, name string) error {
	if sess == nil {
		return &AuthorizationError{Action: "update profile", Anonymous: true}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "display_name", Reason: "required"}
	}
	err := s.repo.UpdateDisplayName(ctx, sess.AccountID, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "user", ID: fmt.Sprint(sess.AccountID)}
	}
	if err != nil {
		return &UpstreamError{Op: "profile update", Err: err}
	}
	return nil
}

// ChangePassword проверяет текущий пароль и сохраняет новый.
// Отзыв остальных сессий аккаунта выполняет вызывающий через session.Manager.RevokeOthers.
func (s *UserService) ChangePassword(ctx context.Context, sess *session.Session, oldPassword, newPassword string) error {
	if sess == nil {
		return &AuthorizationError{Action: "change password", Anonymous: true}
	}
	if newPassword == "" {
		return &ValidationError{Field: "new_password", Reason: "required"}
	}
	user, err := s.repo.GetUserByID(ctx, sess.AccountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: "user", ID: fmt.Sprint(sess.AccountID)}
	}
	if err != nil {
		return &UpstreamError{Op: "user lookup", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return &ValidationError{Field: "old_password", Reason: "does not match"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return &UpstreamError{Op: "password update", Err: err}
	}
	s.logger.Infow("password changed", "user_id", user.ID)
	return nil
}

// Lookup реализует ProfileDirectory.
func (s *UserService) Lookup(ctx context.Context, accountID int64) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, &NotFoundError{Entity: "user", ID: fmt.Sprint(accountID)}
	}
	if err != nil {
		return Profile{}, &UpstreamError{Op: "profile lookup", Err: err}
	}
	return Profile{AccountID: user.ID, DisplayName: user.DisplayName}, nil
}

// SetRole выдаёт или отзывает роль. Вызывающий должен быть admin (проверяется по callerRole).
func (s *UserService) SetRole(ctx context.Context, callerRole access.Role, userID int64, role string, grant bool) error {
	if callerRole != access.RoleAdmin {
		return &AuthorizationError{Action: "manage roles", Anonymous: callerRole == access.RoleNone}
	}
	if _, ok := access.ParseRole(role); !ok {
		return &ValidationError{Field: "role", Reason: "must be one of admin, user, read"}
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "user", ID: fmt.Sprint(userID)}
		}
		return &UpstreamError{Op: "user lookup", Err: err}
	}
	var err error
	if grant {
		err = s.roles.Grant(ctx, userID, role)
	} else {
		err = s.roles.Revoke(ctx, userID, role)
	}
	if err != nil {
		return &UpstreamError{Op: "role update", Err: err}
	}
	if s.notifier != nil {
		s.notifier.NotifyRoleChanged(userID)
	}
	s.logger.Infow("role changed", "user_id", userID, "role", role, "grant", grant)
	return nil
}
