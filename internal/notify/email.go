package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/chrisdamba/foodatrack/internal/models"
)

var emailTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<body>
  <p>Merhaba {{if .Name}}{{.Name}}{{end}},</p>
  <p>{{.Body}}</p>
  <p>Durum: <strong>{{.Status}}</strong></p>
</body>
</html>
`))

type emailData struct {
	Name   string
	Body   string
	Status models.OrderStatus
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel sends HTML status mails over SMTP.
type EmailChannel struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail SendMailFunc
}

func NewEmailChannel(cfg models.EmailConfig) *EmailChannel {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	return &EmailChannel{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:     auth,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
}

// WithSendMail replaces the SMTP transport.
func (c *EmailChannel) WithSendMail(fn SendMailFunc) *EmailChannel {
	c.sendMail = fn
	return c
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Recipient(e Event) string {
	if !e.Notifiable() {
		return ""
	}
	return e.Contact.Email
}

func (c *EmailChannel) Send(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := Compose(e)
	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, emailData{Name: e.Contact.Name, Body: body, Status: e.Status}); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}
	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		headerValue(c.from),
		headerValue(e.Contact.Email),
		mime.QEncoding.Encode("utf-8", headerValue(subject)),
		html.String(),
	)
	if err := c.sendMail(c.addr, c.auth, c.from, []string{e.Contact.Email}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// headerValue folds line breaks into spaces so a value cannot start a new
// header.
func headerValue(v string) string {
	return strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(v)
}
