package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
)

const (
	metricsInterval = 7 * time.Second
	metricsTimeout  = 3 * time.Second
)

// SystemHandler streams backend health and Go runtime metrics via SSE.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	view      PairSnapshotter
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. view may be nil.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, view PairSnapshotter, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		view:      view,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Backends
	PostgresOK    bool  `json:"postgres_ok"`
	DBTotalConns  int32 `json:"db_total_conns"`
	DBIdleConns   int32 `json:"db_idle_conns"`
	DBAcquired    int32 `json:"db_acquired_conns"`
	RedisOK       bool  `json:"redis_ok"`
	PairViewReady bool  `json:"pair_view_ready"`
	PairCount     int   `json:"pair_count"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Worker Queues
	QueueAudit      int64 `json:"queue_audit"`
	QueueAuditViews int64 `json:"queue_audit_views"`
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	m := h.collect(c.Request.Context())
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	ctx, cancel := context.WithTimeout(ctx, metricsTimeout)
	defer cancel()

	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	// ── Postgres ──
	if h.pool != nil {
		m.PostgresOK = h.pool.Ping(ctx) == nil
		stat := h.pool.Stat()
		m.DBTotalConns = stat.TotalConns()
		m.DBIdleConns = stat.IdleConns()
		m.DBAcquired = stat.AcquiredConns()
	}

	// ── Realtime view ──
	if h.view != nil && h.view.Loaded() {
		m.PairViewReady = true
		m.PairCount = len(h.view.Snapshot())
	}

	// ── Go Runtime ──
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.NumGC = ms.NumGC

	// ── Worker Queues (pipelined LLEN) ──
	pipe := h.rdb.Pipeline()
	auditCmd := pipe.LLen(ctx, config.WorkerKey.PersistAuditQueue)
	viewsCmd := pipe.LLen(ctx, config.WorkerKey.AuditViewQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.RedisOK = true
		m.QueueAudit, _ = auditCmd.Result()
		m.QueueAuditViews, _ = viewsCmd.Result()
	}

	return m
}

// GetHealth godoc
// GET /health
// Reports whether Postgres and Redis answer.
func (h *SystemHandler) GetHealth(c *gin.Context) {
	m := h.collect(c.Request.Context())
	status := http.StatusOK
	if !m.PostgresOK || !m.RedisOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"postgres": m.PostgresOK, "redis": m.RedisOK, "uptime": m.Uptime})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
