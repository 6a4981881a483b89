// Package billing reconciles Stripe webhook events into the subscriptions
// and webhook_events tables.
package billing

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrMissingSignature     = errors.New("no signature found")
	ErrSecretNotConfigured  = errors.New("webhook secret not configured")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrUserNotFound         = errors.New("user not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Failure is a handler error carrying the message reported to Stripe.
// Details is only set where the caller should see the underlying cause.
type Failure struct {
	Message string
	Details string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is the successful result of applying an event.
type Outcome struct {
	Message        string
	SubscriptionID string
}

// WebhookEvent is an append-only audit row. Several rows may share a
// StripeEventID: the raw event and any descriptive rows written for it.
type WebhookEvent struct {
	EventType     string
	Type          string
	StripeEventID string
	Data          json.RawMessage
	CreatedAt     time.Time
	ModifiedAt    time.Time
}

// Subscription mirrors a Stripe subscription. Time fields are Unix seconds
// as Stripe reports them.
type Subscription struct {
	StripeID           string
	UserID             string
	PriceID            string
	StripePriceID      string
	Currency           string
	Interval           string
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	CancelAtPeriodEnd  bool
	Amount             int64
	StartedAt          int64
	CustomerID         string
	Metadata           map[string]string
	CanceledAt         *int64
	EndedAt            *int64
}

// SubscriptionUpdate is what a subscription.updated event changes.
type SubscriptionUpdate struct {
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
	CanceledAt         *int64
	EndedAt            *int64
}

// CheckoutUpdate is what a completed checkout session changes. An empty
// UserID leaves the stored user link untouched.
type CheckoutUpdate struct {
	UserID             string
	Status             string
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

// invoiceRecord is the data column of the descriptive row written for an
// invoice payment event.
type invoiceRecord struct {
	InvoiceID      string `json:"invoiceId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	AmountPaid     string `json:"amountPaid,omitempty"`
	AmountDue      string `json:"amountDue,omitempty"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Email          string `json:"email,omitempty"`
}
