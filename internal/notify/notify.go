// Package notify sends the secretariat emails produced by enrollments and
// the document functions.
package notify

import (
	"context"
	"net/mail"
)

// Attachment is a file attached to a message. Content is base64 encoded.
type Attachment struct {
	Filename    string `json:"name"`
	ContentType string `json:"type"`
	Content     string `json:"content"`
}

// Message is an outbound email.
type Message struct {
	To          []mail.Address
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// HasContent reports whether the message has a body or attachments.
func (m Message) HasContent() bool {
	return m.Text != "" || m.HTML != "" || len(m.Attachments) > 0
}

// Receipt is the provider's answer to a send.
type Receipt struct {
	ID         string `json:"id,omitempty"`
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body,omitempty"`
}

// Mailer delivers messages synchronously.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}
