package service

import (
	"KnowBase/internal/access"
	"KnowBase/internal/livesync"
	"KnowBase/internal/model"
	"KnowBase/internal/repo"
	"KnowBase/internal/session"
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop().Sugar()

// мок для repo.UserRepository
type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User, role string) (*model.User, error) {
	args := m.Called(ctx, user, role)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdateDisplayName(ctx context.Context, id int64, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

// мок для repo.RoleRepository
type mockRoleRepo struct{ mock.Mock }

func (m *mockRoleRepo) RolesOf(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).([]string); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRoleRepo) Grant(ctx context.Context, userID int64, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

func (m *mockRoleRepo) Revoke(ctx context.Context, userID int64, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

var _ repo.RoleRepository = (*mockRoleRepo)(nil)

// мок для repo.CardRepository
type mockCardRepo struct{ mock.Mock }

func (m *mockCardRepo) ListAll(ctx context.Context) ([]model.Card, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.Card); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCardRepo) GetByID(ctx context.Context, id string) (*model.Card, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*model.Card); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCardRepo) Create(ctx context.Context, c *model.Card) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCardRepo) Update(ctx context.Context, c *model.Card) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCardRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var _ repo.CardRepository = (*mockCardRepo)(nil)

// staticRoles — RoleResolver с фиксированными ролями по id аккаунта.
type staticRoles map[int64]access.Role

func (r staticRoles) ResolveRole(_ context.Context, s *session.Session) (access.Role, error) {
	if s == nil {
		return access.RoleNone, nil
	}
	return r[s.AccountID], nil
}

// recordingBroker запоминает опубликованные события.
type recordingBroker struct {
	mu     sync.Mutex
	events []livesync.Event
	err    error
}

func (b *recordingBroker) Publish(_ context.Context, ev livesync.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return b.err
}

func (b *recordingBroker) Subscribe(context.Context, string, func(livesync.Event)) (*livesync.Subscription, error) {
	return nil, nil
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) kinds() []livesync.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]livesync.Kind, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Kind)
	}
	return out
}

// fakeProfiles — ProfileDirectory на map.
type fakeProfiles map[int64]string

func (p fakeProfiles) Lookup(_ context.Context, id int64) (Profile, error) {
	name, ok := p[id]
	if !ok {
		return Profile{}, &NotFoundError{Entity: "user"}
	}
	return Profile{AccountID: id, DisplayName: name}, nil
}

func sess(id int64) *session.Session {
	return &session.Session{AccountID: id, Login: "u"}
}

func strPtr(s string) *string { return &s }
