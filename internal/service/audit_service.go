package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AuditService queues audit records on Redis for the audit worker and serves
// the audit screens. When Redis is unavailable records are written directly.
type AuditService struct {
	repo *repository.AuditRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo *repository.AuditRepository, rdb *redis.Client, log zerolog.Logger) *AuditService {
	return &AuditService{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "audit_service").Logger(),
	}
}

// Record implements AuditSink.
func (s *AuditService) Record(ctx context.Context, entry model.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	raw, err := json.Marshal(entry)
	if err == nil {
		err = s.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, raw).Err()
	}
	if err == nil {
		return
	}

	s.log.Warn().Err(err).Str("table", entry.Table).Msg("audit queue unavailable, writing directly")
	if err := s.repo.Insert(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Error().Err(err).
			Str("table", entry.Table).
			Str("record_id", entry.RecordID).
			Msg("failed to persist audit record")
	}
}

// LogView records that caller opened a record.
func (s *AuditService) LogView(ctx context.Context, caller model.Caller, req model.LogViewRequest) error {
	view := model.AuditView{
		UserID:    caller.UserID,
		Table:     req.Table,
		RecordID:  req.RecordID,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(view)
	if err == nil {
		err = s.rdb.RPush(ctx, config.WorkerKey.AuditViewQueue, raw).Err()
	}
	if err == nil {
		return nil
	}
	if err := s.repo.InsertViews(ctx, []model.AuditView{view}); err != nil {
		return storeError("audit.log_view", "Registo", err)
	}
	return nil
}

// List returns a page of audit records.
func (s *AuditService) List(ctx context.Context, filter model.AuditFilter) ([]model.AuditLog, int, error) {
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, storeError("audit.list", "Registo", err)
	}
	return logs, total, nil
}

// Stats returns per-user activity counts.
func (s *AuditService) Stats(ctx context.Context) ([]model.AuditUserStats, error) {
	stats, err := s.repo.StatsByUser(ctx)
	if err != nil {
		return nil, storeError("audit.stats", "Registo", err)
	}
	return stats, nil
}

// auditEntry builds an audit record. Values that fail to marshal are dropped.
func auditEntry(caller model.Caller, action model.AuditAction, table, recordID string, oldValues, newValues any) model.AuditLog {
	entry := model.AuditLog{
		Action:    action,
		Table:     table,
		RecordID:  recordID,
		UserEmail: caller.Email,
		CreatedAt: time.Now(),
	}
	if !caller.Anonymous() {
		id := caller.UserID
		entry.UserID = &id
	}
	if oldValues != nil {
		if raw, err := json.Marshal(oldValues); err == nil {
			entry.OldValues = raw
		}
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			entry.NewValues = raw
		}
	}
	return entry
}
