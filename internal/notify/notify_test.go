package notify

import (
	"context"
	"net/mail"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridPrepare(t *testing.T) {
	m := NewSendGridMailer("key", "Inscrições", "noreply@example.org", zerolog.Nop())
	v3 := m.prepare(Message{
		To:          []mail.Address{{Name: "Secretaria", Address: "secretaria@example.org"}},
		Subject:     "Nova inscrição: Maria",
		HTML:        "<p>ok</p>",
		Attachments: []Attachment{{Filename: "copia_bi.pdf", ContentType: "application/pdf", Content: "JVBERg=="}},
	})

	require.Len(t, v3.Personalizations, 1)
	p := v3.Personalizations[0]
	assert.Equal(t, "[Inscrições] Nova inscrição: Maria", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "secretaria@example.org", p.To[0].Address)
	assert.Equal(t, "noreply@example.org", v3.From.Address)

	// Text is never empty; SendGrid rejects a blank text part.
	require.Len(t, v3.Content, 2)
	assert.Equal(t, "text/plain", v3.Content[0].Type)
	assert.Equal(t, " ", v3.Content[0].Value)
	assert.Equal(t, "text/html", v3.Content[1].Type)

	require.Len(t, v3.Attachments, 1)
	assert.Equal(t, "attachment", v3.Attachments[0].Disposition)
	assert.Equal(t, "copia_bi.pdf", v3.Attachments[0].Filename)
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(zerolog.Nop())
	msg := Message{To: []mail.Address{{Address: "a@example.org"}}, Subject: "s", Text: "t"}
	assert.True(t, msg.HasContent())
	assert.False(t, Message{Subject: "s"}.HasContent())

	receipt, err := m.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, 202, receipt.StatusCode)
	assert.NotEmpty(t, receipt.ID)

	sent := m.Sent()
	require.Len(t, sent, 1)
	sent[0].Subject = "changed"
	assert.Equal(t, "s", m.Sent()[0].Subject)
}
