package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// SendGridMailer sends messages through the SendGrid v3 API.
type SendGridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	log        zerolog.Logger
}

// NewSendGridMailer creates a mailer sending from fromEmail.
func NewSendGridMailer(key, appName, fromEmail string, log zerolog.Logger) *SendGridMailer {
	return &SendGridMailer{
		key:        key,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
		log:        log.With().Str("component", "sendgrid_mailer").Logger(),
	}
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)

	text := msg.Text
	if text == "" {
		text = " "
	}
	v3.AddContent(sgmail.NewContent("text/plain", text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range msg.Attachments {
		v3.AddAttachment(&sgmail.Attachment{
			Content:     a.Content,
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return v3
}

// Send posts the message. A response status of 400 or above is an error.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) (*Receipt, error) {
	req := sendgrid.GetRequest(m.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		m.log.Error().Err(err).Str("subject", msg.Subject).Msg("sending email")
		return nil, fmt.Errorf("sendgrid: %w", err)
	}

	receipt := &Receipt{StatusCode: res.StatusCode, Body: res.Body}
	if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
		receipt.ID = ids[0]
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.log.Error().Int("status", res.StatusCode).Str("body", res.Body).Msg("sending email")
		return receipt, fmt.Errorf("sendgrid: status %d", res.StatusCode)
	}
	return receipt, nil
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
