package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chrisdamba/foodatrack/internal/models"
)

// SMSChannel posts text messages to an HTTP SMS gateway.
type SMSChannel struct {
	client *resty.Client
	sender string
}

type smsRequest struct {
	To        string `json:"to"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

func NewSMSChannel(cfg models.SMSConfig) *SMSChannel {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.GatewayURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &SMSChannel{client: client, sender: cfg.Sender}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Recipient(e Event) string {
	if !e.Notifiable() {
		return ""
	}
	return e.Contact.Phone
}

func (c *SMSChannel) Send(ctx context.Context, e Event) error {
	_, body := Compose(e)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(smsRequest{
			To:        e.Contact.Phone,
			From:      c.sender,
			Text:      body,
			Reference: e.ID,
		}).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
