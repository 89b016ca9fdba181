// Package session реализует серверный провайдер сессий: выпуск и проверка JWT,
// отзыв при logout/refresh и поток уведомлений о смене состояния аутентификации.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CookieName — имя cookie с токеном сессии.
const CookieName = "auth_token"

var (
	// ErrInvalidToken — подпись, формат или срок действия токена некорректны.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrRevoked — токен отозван (logout или refresh).
	ErrRevoked = errors.New("session revoked")
)

// publishTimeout ограничивает отправку события другим экземплярам.
const publishTimeout = 2 * time.Second

// Session — явный объект сессии, передаваемый в сервисы вместо глобального состояния.
// nil *Session означает анонимного вызывающего.
type Session struct {
	AccountID int64
	Login     string
	TokenID   string
	ExpiresAt time.Time
}

// EventKind — тип перехода состояния аутентификации.
type EventKind string

const (
	EventLogin       EventKind = "login"
	EventLogout      EventKind = "logout"
	EventRefresh     EventKind = "refresh"
	EventRoleChanged EventKind = "role_changed"
	// EventCredentialsChanged — пароль сменён, остальные сессии аккаунта отозваны.
	EventCredentialsChanged EventKind = "credentials_changed"
)

// Event — уведомление о смене состояния аутентификации аккаунта.
type Event struct {
	Kind      EventKind
	AccountID int64
}

type claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Login  string `json:"login"`
	// Gen — поколение сессий аккаунта на момент выпуска. Смена пароля увеличивает поколение.
	Gen uint64 `json:"gen,omitempty"`
}

// Manager выпускает и проверяет сессии и рассылает события подписчикам.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked *expirable.LRU[string, struct{}]

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	relay  *relay

	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewManager создаёт провайдер сессий. ttl задаёт срок жизни токена.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		// отозванные jti достаточно помнить не дольше срока жизни токена
		revoked: expirable.NewLRU[string, struct{}](100_000, nil, ttl),
		subs:    make(map[int]func(Event)),

		generations: make(map[int64]uint64),
	}
}

// TTL возвращает срок жизни выпускаемых токенов.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue выпускает токен новой сессии и публикует EventLogin.
func (m *Manager) Issue(accountID int64, login string) (string, *Session, error) {
	token, s, err := m.sign(accountID, login)
	if err != nil {
		return "", nil, err
	}
	m.emit(Event{Kind: EventLogin, AccountID: accountID}, "")
	return token, s, nil
}

// Parse проверяет токен и возвращает сессию.
func (m *Manager) Parse(token string) (*Session, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, ok := m.revoked.Get(c.ID); ok {
		return nil, ErrRevoked
	}
	if c.Gen < m.generation(c.UserID) {
		return nil, ErrRevoked
	}
	s := &Session{AccountID: c.UserID, Login: c.Login, TokenID: c.ID}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}

// Refresh отзывает текущий токен, выпускает новый и публикует EventRefresh.
func (m *Manager) Refresh(s *Session) (string, *Session, error) {
	if s == nil {
		return "", nil, ErrInvalidToken
	}
	token, next, err := m.sign(s.AccountID, s.Login)
	if err != nil {
		return "", nil, err
	}
	m.revoked.Add(s.TokenID, struct{}{})
	m.emit(Event{Kind: EventRefresh, AccountID: s.AccountID}, s.TokenID)
	return token, next, nil
}

// RevokeOthers отзывает все сессии аккаунта и выдаёт вызывающему новый токен.
// Используется после смены пароля: продолжает работать только возвращённый токен.
func (m *Manager) RevokeOthers(s *Session) (string, *Session, error) {
	if s == nil {
		return "", nil, ErrInvalidToken
	}
	m.genMu.Lock()
	m.generations[s.AccountID]++
	gen := m.generations[s.AccountID]
	m.genMu.Unlock()

	token, next, err := m.sign(s.AccountID, s.Login)
	if err != nil {
		return "", nil, err
	}
	m.revoked.Add(s.TokenID, struct{}{})
	m.emit(Event{Kind: EventCredentialsChanged, AccountID: s.AccountID}, strconv.FormatUint(gen, 10))
	return token, next, nil
}

// Revoke завершает сессию (logout) и публикует EventLogout.
func (m *Manager) Revoke(s *Session) {
	if s == nil {
		return
	}
	m.revoked.Add(s.TokenID, struct{}{})
	m.emit(Event{Kind: EventLogout, AccountID: s.AccountID}, s.TokenID)
}

// NotifyRoleChanged сообщает подписчикам о смене ролей аккаунта.
func (m *Manager) NotifyRoleChanged(accountID int64) {
	m.emit(Event{Kind: EventRoleChanged, AccountID: accountID}, "")
}

// Subscribe регистрирует обработчик событий. Возвращённую функцию отписки можно вызывать многократно.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// emit уведомляет локальных подписчиков и, если подключён брокер, остальные экземпляры.
// ref — jti отозванного токена или новое поколение сессий, в зависимости от Kind.
func (m *Manager) emit(ev Event, ref string) {
	m.notify(ev)
	m.mu.RLock()
	r := m.relay
	m.mu.RUnlock()
	if r != nil {
		r.publish(ev, ref)
	}
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Manager) generation(accountID int64) uint64 {
	m.genMu.Lock()
	defer m.genMu.Unlock()
	return m.generations[accountID]
}

// raiseGeneration поднимает поколение до gen; меньшие значения игнорируются.
func (m *Manager) raiseGeneration(accountID int64, gen uint64) {
	m.genMu.Lock()
	defer m.genMu.Unlock()
	if gen > m.generations[accountID] {
		m.generations[accountID] = gen
	}
}

func (m *Manager) sign(accountID int64, login string) (string, *Session, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: accountID,
		Login:  login,
		Gen:    m.generation(accountID),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, &Session{AccountID: accountID, Login: login, TokenID: c.ID, ExpiresAt: exp}, nil
}
