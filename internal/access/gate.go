package access

import (
	"KnowBase/internal/repo"
	"KnowBase/internal/session"
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// SessionEvents — источник уведомлений о смене состояния аутентификации.
type SessionEvents interface {
	Subscribe(fn func(session.Event)) (unsubscribe func())
}

// Gate вычисляет роль аккаунта и кеширует её до ближайшего перехода
// состояния аутентификации (login, logout, refresh, смена ролей).
type Gate struct {
	roles       repo.RoleRepository
	cache       *expirable.LRU[int64, Role]
	logger      *zap.SugaredLogger
	unsubscribe func()
}

// NewGate создаёт Gate и подписывает его на события провайдера сессий.
// ttl ограничивает жизнь записи кеша даже без событий.
func NewGate(roles repo.RoleRepository, events SessionEvents, ttl time.Duration, logger *zap.SugaredLogger) *Gate {
	g := &Gate{
		roles:  roles,
		cache:  expirable.NewLRU[int64, Role](10_000, nil, ttl),
		logger: logger,
	}
	if events != nil {
		g.unsubscribe = events.Subscribe(g.onSessionEvent)
	}
	return g
}

// Close отписывает Gate от событий сессий.
func (g *Gate) Close() {
	if g.unsubscribe != nil {
		g.unsubscribe()
	}
}

// ResolveRole возвращает действующую роль вызывающего. Для nil-сессии это RoleNone.
func (g *Gate) ResolveRole(ctx context.Context, s *session.Session) (Role, error) {
	if s == nil {
		return RoleNone, nil
	}
	if r, ok := g.cache.Get(s.AccountID); ok {
		return r, nil
	}
	rows, err := g.roles.RolesOf(ctx, s.AccountID)
	if err != nil {
		return RoleNone, fmt.Errorf("load roles: %w", err)
	}
	r := HighestRole(rows)
	g.cache.Add(s.AccountID, r)
	return r, nil
}

// Invalidate сбрасывает закешированную роль аккаунта.
func (g *Gate) Invalidate(accountID int64) {
	g.cache.Remove(accountID)
}

func (g *Gate) onSessionEvent(ev session.Event) {
	g.Invalidate(ev.AccountID)
	if g.logger != nil {
		g.logger.Debugw("role cache invalidated", "account_id", ev.AccountID, "event", ev.Kind)
	}
}
