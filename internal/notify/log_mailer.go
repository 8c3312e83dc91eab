package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogMailer writes messages to the log instead of sending them. It keeps
// the sent messages for inspection. Used when no SendGrid key is set.
type LogMailer struct {
	log zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "log_mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg Message) (*Receipt, error) {
	to := make([]string, 0, len(msg.To))
	for _, a := range msg.To {
		to = append(to, a.String())
	}
	m.log.Info().
		Strs("to", to).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("email not sent (log mailer)")

	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return &Receipt{ID: fmt.Sprintf("log-%d", time.Now().UnixNano()), StatusCode: 202}, nil
}

// Sent returns a copy of the messages seen so far.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
