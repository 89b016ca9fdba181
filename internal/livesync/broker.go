// Package livesync реализует канал уведомлений об изменениях: publish/subscribe по топику,
// ключом которого служит тип сущности. Событие не несёт гарантированного содержимого,
// получатель должен перечитать список, а не применять дельту.
package livesync

import (
	"context"
	"sync"
	"time"
)

const (
	// TopicCards — топик изменений таблицы карточек.
	TopicCards = "cards"
	// TopicAuth — служебный топик переходов состояния сессий между экземплярами сервера.
	// Его события не объединяются: каждое несёт отозванный jti.
	TopicAuth = "auth"
)

// Kind — вид изменения.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Event — уведомление "что-то изменилось".
type Event struct {
	Topic   string    `json:"topic"`
	Kind    Kind      `json:"kind"`
	ID      string    `json:"id,omitempty"`
	Account int64     `json:"account,omitempty"`
	Origin  string    `json:"origin,omitempty"`
	At      time.Time `json:"at"`
}

// Broker — транспортно-независимый канал уведомлений.
// Доставка at-least-once с объединением: несколько быстрых записей могут
// прийти одним уведомлением, но после любой записи придёт хотя бы одно.
// Исключение — TopicAuth, там подписчик получает каждое событие по порядку.
// Порядок между разными писателями не гарантируется.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, topic string, onChange func(Event)) (*Subscription, error)
	Close() error
}

// Subscription — дескриптор подписки.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe останавливает доставку. Безопасно вызывать многократно и на nil.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// subscriber доставляет события в колбэк из собственной горутины.
// В режиме объединения в ожидании держится не больше одного события (последнее),
// иначе события копятся в очереди и доставляются все.
type subscriber struct {
	fn       func(Event)
	coalesce bool
	mu       sync.Mutex
	pending  []Event
	wake     chan struct{}
	done     chan struct{}
	stopped  sync.Once
}

func newSubscriber(topic string, fn func(Event)) *subscriber {
	s := &subscriber{
		fn:       fn,
		coalesce: topic != TopicAuth,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) offer(ev Event) {
	s.mu.Lock()
	if s.coalesce {
		s.pending = s.pending[:0]
	}
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			s.mu.Unlock()
			for _, ev := range batch {
				select {
				case <-s.done:
					return
				default:
				}
				s.fn(ev)
			}
		}
	}
}

func (s *subscriber) stop() {
	s.stopped.Do(func() { close(s.done) })
}
