package notification_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

const from = "CNSTRCT <noreply@example.com>"

var templates = notification.Templates{
	"welcome": "<p>Welcome {{name}}</p>",
}

func TestService_Send(t *testing.T) {
	type testCase struct {
		name      string
		msg       notification.Message
		setupMock func(s *notification.MockSender)
		wantID    string
		wantErr   error
	}

	pdf := []byte("%PDF-1.4")

	tests := []testCase{
		{
			name: "Raw HTML",
			msg: notification.Message{
				To:      notification.Recipients{"a@example.com"},
				Subject: "Hello",
				HTML:    "<p>hi</p>",
			},
			setupMock: func(s *notification.MockSender) {
				s.EXPECT().Send(gomock.Any(), notification.Email{
					From:        from,
					To:          []string{"a@example.com"},
					Subject:     "Hello",
					HTML:        "<p>hi</p>",
					Attachments: []notification.EmailAttachment{},
				}).Return("em_1", nil)
			},
			wantID: "em_1",
		},
		{
			name: "Template",
			msg: notification.Message{
				To:           notification.Recipients{"a@example.com"},
				Subject:      "Welcome",
				TemplateName: "welcome",
				Variables:    map[string]any{"name": "Ana"},
				Attachments: []notification.Attachment{
					{Filename: "invoice.pdf", Content: base64.StdEncoding.EncodeToString(pdf), Type: "application/pdf"},
				},
			},
			setupMock: func(s *notification.MockSender) {
				s.EXPECT().Send(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e notification.Email) (string, error) {
						assert.Equal(t, "<p>Welcome Ana</p>", e.HTML)
						require.Len(t, e.Attachments, 1)
						assert.Equal(t, pdf, e.Attachments[0].Content)
						assert.Equal(t, "application/pdf", e.Attachments[0].ContentType)

						return "em_2", nil
					})
			},
			wantID: "em_2",
		},
		{
			name: "HTML wins over template",
			msg: notification.Message{
				To:           notification.Recipients{"a@example.com"},
				Subject:      "Hello",
				HTML:         "<p>direct</p>",
				TemplateName: "does-not-exist",
			},
			setupMock: func(s *notification.MockSender) {
				s.EXPECT().Send(gomock.Any(), gomock.Any()).Return("em_3", nil)
			},
			wantID: "em_3",
		},
		{
			name:      "Missing recipient",
			msg:       notification.Message{Subject: "Hello", HTML: "<p>hi</p>"},
			setupMock: func(s *notification.MockSender) {},
			wantErr:   notification.ErrMissingRecipient,
		},
		{
			name:      "Missing subject",
			msg:       notification.Message{To: notification.Recipients{"a@example.com"}, HTML: "<p>hi</p>"},
			setupMock: func(s *notification.MockSender) {},
			wantErr:   notification.ErrMissingRecipient,
		},
		{
			name: "Unknown template",
			msg: notification.Message{
				To:           notification.Recipients{"a@example.com"},
				Subject:      "Hello",
				TemplateName: "nope",
			},
			setupMock: func(s *notification.MockSender) {},
			wantErr:   notification.ErrUnknownTemplate,
		},
		{
			name:      "No content",
			msg:       notification.Message{To: notification.Recipients{"a@example.com"}, Subject: "Hello"},
			setupMock: func(s *notification.MockSender) {},
			wantErr:   notification.ErrNoContent,
		},
		{
			name: "Bad attachment",
			msg: notification.Message{
				To:          notification.Recipients{"a@example.com"},
				Subject:     "Hello",
				HTML:        "<p>hi</p>",
				Attachments: []notification.Attachment{{Filename: "x.pdf", Content: "%%%"}},
			},
			setupMock: func(s *notification.MockSender) {},
			wantErr:   notification.ErrInvalidAttachment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sender := notification.NewMockSender(ctrl)
			tt.setupMock(sender)

			svc := notification.NewService(templates, sender, from)

			got, err := svc.Send(context.Background(), tt.msg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, notification.IsInvalid(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestService_Send_ProviderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := notification.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("rate limited"))

	svc := notification.NewService(templates, sender, from)

	_, err := svc.Send(context.Background(), notification.Message{
		To:      notification.Recipients{"a@example.com"},
		Subject: "Hello",
		HTML:    "<p>hi</p>",
	})
	assert.EqualError(t, err, "rate limited")
	assert.False(t, notification.IsInvalid(err))
}
