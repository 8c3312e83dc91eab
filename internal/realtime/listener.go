// Package realtime turns database row changes into events and keeps an
// in-memory view of the class pairs up to date with them.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/database"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotifyChannel is the Postgres channel the change trigger writes to.
const NotifyChannel = "table_changes"

// WatchedTables are the tables whose changes are published.
var WatchedTables = []string{
	model.TableClassPairs,
	model.TableClasses,
	model.TableStudents,
	model.TableRooms,
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Listener receives Postgres notifications and republishes them on Redis
// so every server instance sees every change.
type Listener struct {
	cfg *config.Config
	rdb *redis.Client
	log zerolog.Logger
}

// NewListener creates a new Listener.
func NewListener(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) *Listener {
	return &Listener{
		cfg: cfg,
		rdb: rdb,
		log: log.With().Str("component", "realtime_listener").Logger(),
	}
}

// Start listens until ctx is cancelled, reconnecting with backoff.
func (l *Listener) Start(ctx context.Context) {
	l.log.Info().Msg("Realtime listener started")

	backoff := minBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.log.Info().Msg("Realtime listener stopped")
			return
		}
		l.log.Error().Err(err).Dur("retry_in", backoff).Msg("listener connection lost")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := database.NewListenConn(ctx, l.cfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		ev, err := ParseNotification(n.Payload, time.Now())
		if err != nil {
			l.log.Warn().Err(err).Str("payload", n.Payload).Msg("invalid change notification")
			continue
		}
		if err := l.publish(ctx, ev); err != nil {
			l.log.Error().Err(err).Str("table", ev.Table).Msg("failed to publish change")
		}
	}
}

func (l *Listener) publish(ctx context.Context, ev model.ChangeEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return l.rdb.Publish(ctx, config.CacheKey.RealtimeChannel(ev.Table), raw).Err()
}

// notification is the JSON built by notify_table_change().
type notification struct {
	Table  string         `json:"table"`
	Op     model.ChangeOp `json:"op"`
	ID     string         `json:"id"`
	PairID *string        `json:"turma_pair_id"`
}

// ParseNotification decodes a trigger payload.
func ParseNotification(payload string, at time.Time) (model.ChangeEvent, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return model.ChangeEvent{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.Table == "" {
		return model.ChangeEvent{}, fmt.Errorf("notification without table")
	}
	switch n.Op {
	case model.OpInsert, model.OpUpdate, model.OpDelete:
	default:
		return model.ChangeEvent{}, fmt.Errorf("unknown operation %q", n.Op)
	}

	ev := model.ChangeEvent{Table: n.Table, Op: n.Op, ID: n.ID, At: at}
	if n.PairID != nil && *n.PairID != "" {
		id, err := uuid.Parse(*n.PairID)
		if err != nil {
			return model.ChangeEvent{}, fmt.Errorf("parse turma_pair_id: %w", err)
		}
		ev.PairID = &id
	}
	return ev, nil
}
