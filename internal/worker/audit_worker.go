package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AuditBatchSize    = 100
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second
)

// AuditStore persists audit batches.
type AuditStore interface {
	InsertBatch(ctx context.Context, logs []model.AuditLog) error
	Insert(ctx context.Context, l model.AuditLog) error
	InsertViews(ctx context.Context, views []model.AuditView) error
}

// AuditWorker drains the audit queues into Postgres in batches.
type AuditWorker struct {
	store AuditStore
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAuditWorker(store AuditStore, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

// auditBatch collects queued records between flushes.
type auditBatch struct {
	logs  []model.AuditLog
	views []model.AuditView
}

func (b *auditBatch) size() int { return len(b.logs) + len(b.views) }

func (b *auditBatch) reset() {
	b.logs = b.logs[:0]
	b.views = b.views[:0]
}

// add decodes one queued payload into the batch.
func (b *auditBatch) add(queue, payload string) error {
	switch queue {
	case config.WorkerKey.AuditViewQueue:
		var v model.AuditView
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return err
		}
		b.views = append(b.views, v)
	default:
		var l model.AuditLog
		if err := json.Unmarshal([]byte(payload), &l); err != nil {
			return err
		}
		b.logs = append(b.logs, l)
	}
	return nil
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := &auditBatch{
		logs:  make([]model.AuditLog, 0, AuditBatchSize),
		views: make([]model.AuditView, 0, AuditBatchSize),
	}
	lastFlush := time.Now()

	for {
		if batch.size() > 0 &&
			(batch.size() >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch.reset()
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AuditPollTimeout,
				config.WorkerKey.PersistAuditQueue, config.WorkerKey.AuditViewQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			if err := batch.add(item[0], item[1]); err != nil {
				w.log.Error().Err(err).Str("queue", item[0]).Msg("Invalid JSON payload")
			}
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-record fallback
// ----------------------------------------------------------------

func (w *AuditWorker) flushSafe(ctx context.Context, batch *auditBatch) {
	if batch.size() == 0 {
		return
	}

	if len(batch.logs) > 0 {
		if err := w.store.InsertBatch(ctx, batch.logs); err != nil {
			w.log.Warn().Err(err).Int("count", len(batch.logs)).Msg("bulk audit insert failed, using fallback")

			for _, l := range batch.logs {
				if err := w.store.Insert(ctx, l); err != nil {
					var pgErr *pgconn.PgError
					if errors.As(err, &pgErr) {
						// Rejected by the database; retrying cannot help.
						w.log.Error().Err(err).Str("table", l.Table).Str("record_id", l.RecordID).Msg("audit record dropped")
						continue
					}
					w.log.Error().Err(err).Str("table", l.Table).Msg("audit insert failed, requeueing")
					raw, _ := json.Marshal(l)
					w.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw)
				}
			}
		}
	}

	if len(batch.views) > 0 {
		if err := w.store.InsertViews(ctx, batch.views); err != nil {
			w.log.Error().Err(err).Int("count", len(batch.views)).Msg("audit view insert failed, requeueing")
			for _, v := range batch.views {
				raw, _ := json.Marshal(v)
				w.rdb.RPush(ctx, config.WorkerKey.AuditViewQueue, raw)
			}
		}
	}
}
