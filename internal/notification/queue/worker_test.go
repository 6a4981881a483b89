package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnstrctnetwork/cnstrct/internal/notification"
	"github.com/cnstrctnetwork/cnstrct/internal/notification/queue"
)

type fakeSender struct {
	sent []notification.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg notification.Message) (*notification.Result, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.sent = append(f.sent, msg)

	return &notification.Result{ID: "em_1"}, nil
}

type fakeDedup struct {
	seen     map[string]bool
	released []string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{seen: map[string]bool{}}
}

func (f *fakeDedup) Acquire(_ context.Context, key string) bool {
	if f.seen[key] {
		return false
	}

	f.seen[key] = true

	return true
}

func (f *fakeDedup) Release(_ context.Context, key string) {
	delete(f.seen, key)
	f.released = append(f.released, key)
}

func envelope(t *testing.T, key string) []byte {
	t.Helper()

	b, err := json.Marshal(queue.Envelope{
		Key: key,
		Message: notification.Message{
			To:           notification.Recipients{"a@example.com"},
			Subject:      "Payment Receipt",
			TemplateName: "payment_invoice",
		},
	})
	require.NoError(t, err)

	return b
}

func TestWorker_Handle(t *testing.T) {
	sender := &fakeSender{}
	dedup := newFakeDedup()
	w := queue.NewWorker(sender, dedup)

	require.NoError(t, w.Handle(context.Background(), envelope(t, "evt_1:payment_invoice")))
	require.NoError(t, w.Handle(context.Background(), envelope(t, "evt_1:payment_invoice")))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Payment Receipt", sender.sent[0].Subject)
	assert.Equal(t, notification.Recipients{"a@example.com"}, sender.sent[0].To)
}

func TestWorker_Handle_Errors(t *testing.T) {
	type testCase struct {
		name          string
		body          []byte
		sendErr       error
		wantPermanent bool
		wantReleased  bool
	}

	tests := []testCase{
		{
			name:          "Malformed body",
			body:          []byte("{"),
			wantPermanent: true,
		},
		{
			name:          "Invalid message",
			body:          envelope(t, "k1"),
			sendErr:       notification.ErrUnknownTemplate,
			wantPermanent: true,
			wantReleased:  true,
		},
		{
			name:         "Provider down",
			body:         envelope(t, "k2"),
			sendErr:      errors.New("503 service unavailable"),
			wantReleased: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dedup := newFakeDedup()
			w := queue.NewWorker(&fakeSender{err: tt.sendErr}, dedup)

			err := w.Handle(context.Background(), tt.body)
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, queue.IsPermanent(err))
			assert.Equal(t, tt.wantReleased, len(dedup.released) == 1)
		})
	}
}

func TestWorker_Handle_NoDedup(t *testing.T) {
	sender := &fakeSender{}
	w := queue.NewWorker(sender, nil)

	require.NoError(t, w.Handle(context.Background(), envelope(t, "k")))
	require.NoError(t, w.Handle(context.Background(), envelope(t, "k")))

	assert.Len(t, sender.sent, 2)
}
