package provider_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/cnstrctnetwork/cnstrct/internal/billing/provider"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *provider.Stripe {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		MaxNetworkRetries: stripe.Int64(0),
	})

	return provider.NewWithBackends("sk_test_123", &stripe.Backends{API: backend})
}

func TestStripe_GetCustomer(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/customers/cus_1", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"cus_1","object":"customer","email":"ana@example.com"}`)
	})

	c, err := p.GetCustomer(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", c.Email)
}

func TestStripe_UpdateSubscriptionMetadata(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		form, err := url.ParseQuery(string(body))
		require.NoError(t, err)
		assert.Equal(t, "cs_1", form.Get("metadata[checkoutSessionId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"sub_1","object":"subscription","status":"active","metadata":{"checkoutSessionId":"cs_1"}}`)
	})

	sub, err := p.UpdateSubscriptionMetadata(context.Background(), "sub_1", map[string]string{"checkoutSessionId": "cs_1"})
	require.NoError(t, err)
	assert.Equal(t, stripe.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "cs_1", sub.Metadata["checkoutSessionId"])
}

func TestStripe_GetSubscription_Error(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"No such subscription: 'sub_x'"}}`)
	})

	_, err := p.GetSubscription(context.Background(), "sub_x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such subscription")
}
