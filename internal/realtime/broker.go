package realtime

import (
	"context"
	"encoding/json"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Broker hands out change event subscriptions backed by Redis PubSub.
type Broker struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewBroker creates a new Broker.
func NewBroker(rdb *redis.Client, log zerolog.Logger) *Broker {
	return &Broker{rdb: rdb, log: log.With().Str("component", "realtime_broker").Logger()}
}

// Subscription is one acquired change feed. Close releases it.
type Subscription struct {
	Events <-chan model.ChangeEvent
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops the feed and waits for its goroutine to exit.
func (s *Subscription) Close() error {
	s.cancel()
	err := s.pubsub.Close()
	<-s.done
	return err
}

// Subscribe opens a feed for tables, or for every watched table when none
// are given. The feed ends when ctx is cancelled or Close is called.
func (b *Broker) Subscribe(ctx context.Context, tables ...string) *Subscription {
	var pubsub *redis.PubSub
	if len(tables) == 0 {
		pubsub = b.rdb.PSubscribe(ctx, config.CacheKey.RealtimePattern())
	} else {
		channels := make([]string, 0, len(tables))
		for _, t := range tables {
			channels = append(channels, config.CacheKey.RealtimeChannel(t))
		}
		pubsub = b.rdb.Subscribe(ctx, channels...)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan model.ChangeEvent, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("invalid change event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{Events: out, pubsub: pubsub, cancel: cancel, done: done}
}
