package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSender_Send(t *testing.T) {
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	sender := NewResendSender("re_test")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	sender.client.BaseURL = base

	id, err := sender.Send(context.Background(), Email{
		From:    "support@example.com",
		To:      []string{"a@example.com"},
		Subject: "Invoice",
		HTML:    "<p>hi</p>",
		Attachments: []EmailAttachment{
			{Filename: "invoice.pdf", Content: []byte("%PDF"), ContentType: "application/pdf"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "em_1", id)

	attachments, ok := got["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, attachments, 1)

	att := attachments[0].(map[string]any)
	assert.Equal(t, "invoice.pdf", att["filename"])
	assert.Equal(t, "application/pdf", att["content_type"])
}
