package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker — брокер поверх Redis Pub/Sub: несколько экземпляров сервера
// раздают изменения клиентам друг друга.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *zap.SugaredLogger
}

var _ Broker = (*RedisBroker)(nil)

// NewRedisBroker создаёт брокер поверх готового клиента. prefix добавляется к имени канала.
func NewRedisBroker(client *redis.Client, prefix string, logger *zap.SugaredLogger) (*RedisBroker, error) {
	if client == nil {
		return nil, errors.New("livesync: redis client is nil")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RedisBroker{client: client, prefix: prefix, logger: logger}, nil
}

func (b *RedisBroker) channel(topic string) string { return b.prefix + topic }

// Publish сериализует событие в JSON и публикует его в канал топика.
func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(ev.Topic), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe подписывается на канал топика. ctx ограничивает только установку подписки;
// доставка продолжается до Unsubscribe.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string, onChange func(Event)) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	s := newSubscriber(topic, onChange)
	subCtx, cancel := context.WithCancel(context.Background())
	go func(messages <-chan *redis.Message) {
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warnw("livesync: bad payload", "channel", msg.Channel, "error", err)
					// уведомление всё равно полезно: получатель перечитает список
					ev = Event{Topic: topic}
				}
				s.offer(ev)
			}
		}
	}(ps.Channel())

	return &Subscription{cancel: func() {
		cancel()
		s.stop()
		if err := ps.Close(); err != nil {
			b.logger.Debugw("livesync: close pubsub", "error", err)
		}
	}}, nil
}

// Close закрывает клиент Redis.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
