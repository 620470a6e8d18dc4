package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	providerResend = "resend"

	resendBaseURL  = "https://api.resend.com"
	resendSendPath = "/emails"

	sendTimeout = 15 * time.Second
)

// ResendProvider delivers through the Resend HTTP API.
type ResendProvider struct {
	client *resty.Client
	apiKey string
}

// NewResendProvider builds a Resend-backed provider. baseURL overrides the
// production endpoint; pass "" outside of tests.
func NewResendProvider(apiKey, baseURL string) *ResendProvider {
	if baseURL == "" {
		baseURL = resendBaseURL
	}
	return &ResendProvider{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(sendTimeout),
		apiKey: apiKey,
	}
}

func (p *ResendProvider) Name() string { return providerResend }

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (p *ResendProvider) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	if p.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	var out struct {
		ID string `json:"id"`
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(resendPayload{
			From:    msg.From,
			To:      msg.To,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
			ReplyTo: msg.ReplyTo,
		}).
		SetResult(&out).
		Post(resendSendPath)
	if err != nil {
		return nil, fmt.Errorf("resend request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("resend returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return &SendResult{MessageID: out.ID, Provider: providerResend}, nil
}
