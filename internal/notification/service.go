package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/cnstrctnetwork/cnstrct/internal/metrics"
)

var (
	ErrMissingRecipient  = errors.New("missing to or subject")
	ErrUnknownTemplate   = errors.New("unknown template")
	ErrNoContent         = errors.New("no html content")
	ErrInvalidAttachment = errors.New("attachment content is not base64")
)

// IsInvalid reports whether err is a problem with the request rather than
// with delivery.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrMissingRecipient) ||
		errors.Is(err, ErrUnknownTemplate) ||
		errors.Is(err, ErrNoContent) ||
		errors.Is(err, ErrInvalidAttachment)
}

// Email is a fully rendered message ready for a provider.
type Email struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []EmailAttachment
}

type EmailAttachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

//go:generate mockgen -source=service.go -destination=sender_mock.go -package=notification
type Sender interface {
	// Send delivers the email and returns the provider's message id.
	Send(ctx context.Context, e Email) (string, error)
}

type Result struct {
	ID string `json:"id"`
}

type Service struct {
	templates Templates
	sender    Sender
	from      string
}

func NewService(templates Templates, sender Sender, from string) *Service {
	return &Service{templates: templates, sender: sender, from: from}
}

// Send validates msg, renders its template when no HTML is given and hands
// the result to the provider.
func (s *Service) Send(ctx context.Context, msg Message) (*Result, error) {
	e, err := s.build(msg)
	if err != nil {
		return nil, err
	}

	id, err := s.sender.Send(ctx, e)
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()

	return &Result{ID: id}, nil
}

// Notify sends msg and drops the result. The key identifies the message for
// queued delivery and is not needed when sending directly.
func (s *Service) Notify(ctx context.Context, _ string, msg Message) error {
	_, err := s.Send(ctx, msg)
	return err
}

func (s *Service) build(msg Message) (Email, error) {
	if len(msg.To) == 0 || msg.Subject == "" {
		return Email{}, ErrMissingRecipient
	}

	html := msg.HTML
	if html == "" && msg.TemplateName != "" {
		tpl, ok := s.templates[msg.TemplateName]
		if !ok {
			return Email{}, ErrUnknownTemplate
		}

		html = Render(tpl, msg.Variables)
	}

	if html == "" {
		return Email{}, ErrNoContent
	}

	atts := make([]EmailAttachment, 0, len(msg.Attachments))

	for _, a := range msg.Attachments {
		content, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return Email{}, fmt.Errorf("%w: %s", ErrInvalidAttachment, a.Filename)
		}

		atts = append(atts, EmailAttachment{Filename: a.Filename, Content: content, ContentType: a.Type})
	}

	return Email{
		From:        s.from,
		To:          msg.To,
		Subject:     msg.Subject,
		HTML:        html,
		Attachments: atts,
	}, nil
}
