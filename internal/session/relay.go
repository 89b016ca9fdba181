package session

import (
	"KnowBase/internal/livesync"
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// relay пересылает переходы состояния сессий через livesync-брокер,
// чтобы отзыв токена и смена ролей были видны всем экземплярам сервера.
type relay struct {
	broker livesync.Broker
	origin string
	logger *zap.SugaredLogger
}

// AttachBroker подключает Manager к общему топику livesync.TopicAuth.
// Локальные события публикуются в брокер, чужие применяются к списку отозванных
// токенов и пересылаются локальным подписчикам (например, access.Gate).
// Возвращённая функция отключает Manager от брокера.
func (m *Manager) AttachBroker(ctx context.Context, broker livesync.Broker, logger *zap.SugaredLogger) (detach func(), err error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &relay{broker: broker, origin: uuid.NewString(), logger: logger}

	sub, err := broker.Subscribe(ctx, livesync.TopicAuth, func(ev livesync.Event) {
		m.applyRemote(r.origin, ev)
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.relay = r
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		if m.relay == r {
			m.relay = nil
		}
		m.mu.Unlock()
		sub.Unsubscribe()
	}, nil
}

func (r *relay) publish(ev Event, ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	err := r.broker.Publish(ctx, livesync.Event{
		Topic:   livesync.TopicAuth,
		Kind:    livesync.Kind(ev.Kind),
		ID:      ref,
		Account: ev.AccountID,
		Origin:  r.origin,
		At:      time.Now().UTC(),
	})
	if err != nil {
		// локально событие уже применено; остальные экземпляры узнают о нём только по TTL
		r.logger.Errorw("session event publish failed", "kind", ev.Kind, "account_id", ev.AccountID, "error", err)
	}
}

func (m *Manager) applyRemote(origin string, ev livesync.Event) {
	if ev.Origin == origin {
		return
	}
	kind := EventKind(ev.Kind)
	switch kind {
	case EventLogout, EventRefresh:
		if ev.ID != "" {
			m.revoked.Add(ev.ID, struct{}{})
		}
	case EventCredentialsChanged:
		if gen, err := strconv.ParseUint(ev.ID, 10, 64); err == nil {
			m.raiseGeneration(ev.Account, gen)
		}
	case EventLogin, EventRoleChanged:
	default:
		return
	}
	m.notify(Event{Kind: kind, AccountID: ev.Account})
}
