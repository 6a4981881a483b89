package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cnstrctnetwork/cnstrct/internal/metrics"
	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type Sender interface {
	Send(ctx context.Context, msg notification.Message) (*notification.Result, error)
}

type Dedup interface {
	Acquire(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

// Worker turns queued envelopes into sent emails.
type Worker struct {
	sender Sender
	dedup  Dedup
}

func NewWorker(sender Sender, dedup Dedup) *Worker {
	return &Worker{sender: sender, dedup: dedup}
}

// Handle is a HandlerFunc.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Permanent(fmt.Errorf("decoding envelope: %w", err))
	}

	if env.Key != "" && w.dedup != nil && !w.dedup.Acquire(ctx, env.Key) {
		slog.Info("skipping duplicate notification", "key", env.Key)
		metrics.EmailsSent.WithLabelValues("duplicate").Inc()

		return nil
	}

	res, err := w.sender.Send(ctx, env.Message)
	if err != nil {
		if env.Key != "" && w.dedup != nil {
			w.dedup.Release(ctx, env.Key)
		}

		if notification.IsInvalid(err) {
			return Permanent(err)
		}

		return err
	}

	slog.Info("notification sent", "key", env.Key, "id", res.ID)

	return nil
}
