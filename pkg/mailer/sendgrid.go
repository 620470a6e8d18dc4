package mailer

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const (
	providerSendGrid = "sendgrid"

	sendgridBaseURL  = "https://api.sendgrid.com"
	sendgridSendPath = "/v3/mail/send"

	sendgridMessageIDHeader = "X-Message-Id"
)

// SendGridProvider delivers through the SendGrid v3 API. Typically configured
// second, as the failover behind Resend.
type SendGridProvider struct {
	client *resty.Client
	apiKey string
}

func NewSendGridProvider(apiKey, baseURL string) *SendGridProvider {
	if baseURL == "" {
		baseURL = sendgridBaseURL
	}
	return &SendGridProvider{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(sendTimeout),
		apiKey: apiKey,
	}
}

func (p *SendGridProvider) Name() string { return providerSendGrid }

type sendgridAddress struct {
	Email string `json:"email"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridPayload struct {
	Personalizations []struct {
		To []sendgridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendgridAddress   `json:"from"`
	ReplyTo *sendgridAddress  `json:"reply_to,omitempty"`
	Subject string            `json:"subject"`
	Content []sendgridContent `json:"content"`
}

func (p *SendGridProvider) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	if p.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	to := make([]sendgridAddress, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, sendgridAddress{Email: addr})
	}

	payload := sendgridPayload{
		Personalizations: []struct {
			To []sendgridAddress `json:"to"`
		}{{To: to}},
		From:    sendgridAddress{Email: msg.From},
		Subject: msg.Subject,
	}
	if msg.ReplyTo != "" {
		payload.ReplyTo = &sendgridAddress{Email: msg.ReplyTo}
	}
	// SendGrid requires text/plain before text/html when both are present.
	if msg.Text != "" {
		payload.Content = append(payload.Content, sendgridContent{Type: "text/plain", Value: msg.Text})
	}
	payload.Content = append(payload.Content, sendgridContent{Type: "text/html", Value: msg.HTML})

	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(payload).
		Post(sendgridSendPath)
	if err != nil {
		return nil, fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return &SendResult{
		MessageID: resp.Header().Get(sendgridMessageIDHeader),
		Provider:  providerSendGrid,
	}, nil
}
