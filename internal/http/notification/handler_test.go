package notification_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	notificationHandler "github.com/cnstrctnetwork/cnstrct/internal/http/notification"
	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

func TestHandler_Send(t *testing.T) {
	templates := notification.Templates{"welcome": "<p>Welcome {{name}}</p>"}

	type testCase struct {
		name       string
		body       string
		setupMock  func(s *notification.MockSender)
		wantStatus int
		wantBody   string
	}

	tests := []testCase{
		{
			name: "Template with single recipient",
			body: `{"to":"ana@example.com","subject":"Welcome","template_name":"welcome","variables":{"name":"Ana"}}`,
			setupMock: func(s *notification.MockSender) {
				s.EXPECT().Send(gomock.Any(), gomock.Any()).Return("em_123", nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"em_123"}`,
		},
		{
			name:       "Missing subject",
			body:       `{"to":["ana@example.com"],"html":"<p>x</p>"}`,
			setupMock:  func(s *notification.MockSender) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing 'to' or 'subject'."}`,
		},
		{
			name:       "Empty recipient list",
			body:       `{"to":[],"subject":"Hi","html":"<p>x</p>"}`,
			setupMock:  func(s *notification.MockSender) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing 'to' or 'subject'."}`,
		},
		{
			name:       "Unknown template",
			body:       `{"to":"ana@example.com","subject":"Hi","template_name":"nope"}`,
			setupMock:  func(s *notification.MockSender) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Unknown template_name."}`,
		},
		{
			name:       "No content",
			body:       `{"to":"ana@example.com","subject":"Hi"}`,
			setupMock:  func(s *notification.MockSender) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"No HTML content provided."}`,
		},
		{
			name:       "Bad attachment",
			body:       `{"to":"ana@example.com","subject":"Hi","html":"<p>x</p>","attachments":[{"filename":"a.pdf","content":"%%%"}]}`,
			setupMock:  func(s *notification.MockSender) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid attachment content."}`,
		},
		{
			name: "Provider error is passed through",
			body: `{"to":"ana@example.com","subject":"Hi","html":"<p>x</p>"}`,
			setupMock: func(s *notification.MockSender) {
				s.EXPECT().Send(gomock.Any(), gomock.Any()).Return("", errors.New("The domain is not verified"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"The domain is not verified"}`,
		},
		{
			name:       "Malformed body",
			body:       `{"to":`,
			setupMock:  func(s *notification.MockSender) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid JSON body."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sender := notification.NewMockSender(ctrl)
			tt.setupMock(sender)

			r := chi.NewRouter()
			notificationHandler.NewHandler(notification.NewService(templates, sender, "noreply@example.com")).Routes(r)

			req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
