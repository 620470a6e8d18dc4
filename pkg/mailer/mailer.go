// Package mailer sends transactional email through pluggable delivery
// providers, failing over to the next provider when one refuses a message.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

var (
	ErrNoProviders        = errors.New("at least one mail provider is required")
	ErrNoRecipients       = errors.New("at least one recipient is required")
	ErrSubjectRequired    = errors.New("subject is required")
	ErrBodyRequired       = errors.New("html body is required")
	ErrInvalidFromAddress = errors.New("invalid from address")
	ErrAPIKeyMissing      = errors.New("provider api key is not set")
	ErrAllProvidersFailed = errors.New("all mail providers failed")
)

// Message is a single outbound email. HTML is the primary body; Text is the
// plain-text alternative for clients that want one.
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// SendResult reports which provider accepted the message and the id it
// assigned.
type SendResult struct {
	MessageID string
	Provider  string
}

// Provider is a single delivery backend.
type Provider interface {
	Send(ctx context.Context, msg *Message) (*SendResult, error)
	Name() string
}

// Service fans a message out to its providers in order until one accepts it.
type Service struct {
	providers   []Provider
	defaultFrom string
}

// NewService builds a sending service. Provider order is failover order.
// defaultFrom fills in messages that carry no From address.
func NewService(defaultFrom string, providers ...Provider) (*Service, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	for _, p := range providers {
		if p == nil {
			return nil, ErrNoProviders
		}
	}
	if defaultFrom != "" {
		if _, err := mail.ParseAddress(defaultFrom); err != nil {
			return nil, ErrInvalidFromAddress
		}
	}

	return &Service{
		providers:   append([]Provider(nil), providers...),
		defaultFrom: defaultFrom,
	}, nil
}

// Send validates the message and tries each provider in order, returning the
// first acceptance. The returned error joins every provider's refusal when
// none accepts.
func (s *Service) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	m := *msg
	if m.From == "" {
		m.From = s.defaultFrom
	}
	if err := validateMessage(&m); err != nil {
		return nil, err
	}

	var refusals []error
	for _, p := range s.providers {
		result, err := p.Send(ctx, &m)
		if err == nil {
			return result, nil
		}
		refusals = append(refusals, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return nil, errors.Join(ErrAllProvidersFailed, errors.Join(refusals...))
}

func validateMessage(m *Message) error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("invalid recipient address %q: %w", to, err)
		}
	}
	if _, err := mail.ParseAddress(m.From); err != nil {
		return ErrInvalidFromAddress
	}
	if m.Subject == "" {
		return ErrSubjectRequired
	}
	if m.HTML == "" {
		return ErrBodyRequired
	}
	if m.ReplyTo != "" {
		if _, err := mail.ParseAddress(m.ReplyTo); err != nil {
			return fmt.Errorf("invalid reply-to address %q: %w", m.ReplyTo, err)
		}
	}
	return nil
}
