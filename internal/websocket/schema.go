package websocket

import (
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubscribe Action = "subscribe"
	ActionSnapshot  Action = "snapshot"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SubscribeRequest narrows the change stream to a set of tables. An empty
// list means every watched table.
type SubscribeRequest struct {
	Action Action   `json:"action"`
	Tables []string `json:"tables"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSubscribed Event = "subscribed"
	EventChange     Event = "change"
	EventSnapshot   Event = "snapshot"
	EventPong       Event = "pong"
)

type SubscribedResponse struct {
	Event  Event    `json:"event"`
	Tables []string `json:"tables"`
}

// ChangeResponse forwards one row change to the client.
type ChangeResponse struct {
	Event  Event             `json:"event"`
	Change model.ChangeEvent `json:"change"`
}

// SnapshotResponse carries the class pair view after it moved to Version.
type SnapshotResponse struct {
	Event   Event                      `json:"event"`
	Version uint64                     `json:"version"`
	Pairs   []model.ClassPairAggregate `json:"pairs"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
