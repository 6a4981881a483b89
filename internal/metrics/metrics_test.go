package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/v1/projects/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.CollectAndCount(HTTPRequestDuration)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects/abc", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordWebhookEvent(t *testing.T) {
	before := testutil.ToFloat64(WebhookEvents.WithLabelValues("invoice.payment_failed", "ok"))

	RecordWebhookEvent("invoice.payment_failed", "ok")

	assert.Equal(t, before+1, testutil.ToFloat64(WebhookEvents.WithLabelValues("invoice.payment_failed", "ok")))
}
