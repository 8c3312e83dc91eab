package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/associacao-ensino/inscricoes-backend/internal/middleware"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/realtime"
	"github.com/associacao-ensino/inscricoes-backend/internal/response"
	ws "github.com/associacao-ensino/inscricoes-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// PairWatcher is the realtime class pair view as seen by the stream.
type PairWatcher interface {
	PairSnapshotter
	Watch() (<-chan uint64, func())
}

// WSHandler streams row changes and class pair snapshots over WebSocket.
type WSHandler struct {
	broker   *realtime.Broker
	view     PairWatcher
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. view may be nil.
func NewWSHandler(broker *realtime.Broker, view PairWatcher, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		broker:   broker,
		view:     view,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// RealtimeStream godoc
// WS /ws/v1/realtime?token=
// Pushes "change" events for rooms, class pairs, classes and students, and
// a "snapshot" of the class pair view whenever it moves.
// Clients may send {"action":"subscribe","tables":[...]} to narrow the
// change events, {"action":"snapshot"} and {"action":"ping"}.
func (h *WSHandler) RealtimeStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("user_id", claims.UserID).Logger()
	wsLog.Info().Msg("Realtime client connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.broker.Subscribe(ctx)
	defer sub.Close()

	var versions <-chan uint64
	if h.view != nil {
		ch, release := h.view.Watch()
		defer release()
		versions = ch
	}

	// The read loop runs in its own goroutine; every write happens below.
	requests := make(chan json.RawMessage, 8)
	go h.readLoop(ctx, cancel, conn, requests, wsLog)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	filter := map[string]bool{}
	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Realtime client disconnected")
			return

		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			if len(filter) > 0 && !filter[ev.Table] {
				continue
			}
			if err := ws.WriteTyped(conn, ws.ChangeResponse{Event: ws.EventChange, Change: ev}); err != nil {
				return
			}

		case version := <-versions:
			if err := h.writeSnapshot(conn, version); err != nil {
				return
			}

		case raw := <-requests:
			if err := h.handleRequest(conn, raw, filter); err != nil {
				return
			}

		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- json.RawMessage, wsLog zerolog.Logger) {
	defer cancel()
	ws.KeepAlive(conn)
	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case out <- raw:
		case <-ctx.Done():
			return
		}
	}
}

// handleRequest answers one client action. filter is updated in place.
func (h *WSHandler) handleRequest(conn *websocket.Conn, raw json.RawMessage, filter map[string]bool) error {
	var env ws.RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ws.WriteError(conn, "invalid message")
	}

	switch env.Action {
	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionSubscribe:
		var req ws.SubscribeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return ws.WriteError(conn, "invalid subscribe message")
		}
		for k := range filter {
			delete(filter, k)
		}
		tables := make([]string, 0, len(req.Tables))
		for _, t := range req.Tables {
			if !isWatchedTable(t) {
				return ws.WriteError(conn, "unknown table: "+t)
			}
			filter[t] = true
			tables = append(tables, t)
		}
		return ws.WriteTyped(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, Tables: tables})

	case ws.ActionSnapshot:
		return h.writeSnapshot(conn, 0)

	default:
		return ws.WriteError(conn, "unknown action: "+string(env.Action))
	}
}

func (h *WSHandler) writeSnapshot(conn *websocket.Conn, version uint64) error {
	if h.view == nil || !h.view.Loaded() {
		return ws.WriteError(conn, "class pair view not available")
	}
	pairs := h.view.Snapshot()
	if pairs == nil {
		pairs = []model.ClassPairAggregate{}
	}
	return ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Version: version, Pairs: pairs})
}

func isWatchedTable(table string) bool {
	for _, t := range realtime.WatchedTables {
		if t == table {
			return true
		}
	}
	return false
}
