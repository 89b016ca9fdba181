package livesync

import (
	"context"
	"sync"
)

// MemoryBroker — брокер в пределах одного процесса.
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
}

var _ Broker = (*MemoryBroker)(nil)

// NewMemoryBroker создаёт пустой брокер.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string]map[*subscriber]struct{})}
}

// Publish раздаёт событие всем подписчикам топика. Не блокируется на медленных получателях.
func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.topics[ev.Topic] {
		s.offer(ev)
	}
	return nil
}

// Subscribe регистрирует колбэк на топик.
func (b *MemoryBroker) Subscribe(_ context.Context, topic string, onChange func(Event)) (*Subscription, error) {
	s := newSubscriber(topic, onChange)
	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*subscriber]struct{})
	}
	b.topics[topic][s] = struct{}{}
	b.mu.Unlock()

	return &Subscription{cancel: func() {
		b.mu.Lock()
		delete(b.topics[topic], s)
		b.mu.Unlock()
		s.stop()
	}}, nil
}

// Close останавливает всех подписчиков.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, subs := range b.topics {
		for s := range subs {
			s.stop()
		}
		delete(b.topics, topic)
	}
	return nil
}
