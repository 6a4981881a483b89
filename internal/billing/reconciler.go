package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/cnstrctnetwork/cnstrct/internal/money"
	"github.com/cnstrctnetwork/cnstrct/internal/notification"
)

//go:generate mockgen -source=reconciler.go -destination=reconciler_mock.go -package=billing
type Repository interface {
	AppendEvent(ctx context.Context, e *WebhookEvent) error
	// UserIDByEmail returns ErrUserNotFound when no user has the address.
	UserIDByEmail(ctx context.Context, email string) (string, error)

	// UpsertSubscription inserts or replaces the row with the same stripe id,
	// keeping the existing row id.
	UpsertSubscription(ctx context.Context, s *Subscription) error
	UpdateSubscription(ctx context.Context, stripeID string, u SubscriptionUpdate) error
	UpdateSubscriptionStatus(ctx context.Context, stripeID, status string) error
	ApplyCheckout(ctx context.Context, stripeID string, u CheckoutUpdate) error
	// GetSubscription returns ErrSubscriptionNotFound for unknown ids.
	GetSubscription(ctx context.Context, stripeID string) (*Subscription, error)

	ClearUserSubscription(ctx context.Context, email string) error
}

// Provider is the part of the Stripe API the reconciler calls back into.
type Provider interface {
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	UpdateSubscriptionMetadata(ctx context.Context, id string, metadata map[string]string) (*stripe.Subscription, error)
}

// Notifier hands an email off for delivery. key identifies the message so
// a redelivered webhook does not send it twice.
type Notifier interface {
	Notify(ctx context.Context, key string, msg notification.Message) error
}

type Reconciler struct {
	repo     Repository
	provider Provider
	notifier Notifier
	secret   string
	now      func() time.Time
}

// NewReconciler builds a reconciler. notifier may be nil, in which case no
// payment receipts are sent.
func NewReconciler(repo Repository, provider Provider, notifier Notifier, secret string) *Reconciler {
	return &Reconciler{
		repo:     repo,
		provider: provider,
		notifier: notifier,
		secret:   secret,
		now:      time.Now,
	}
}

// WithClock replaces the reconciler clock; used by tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Verify checks the Stripe-Signature header against the payload and returns
// the decoded event.
func (r *Reconciler) Verify(payload []byte, signature string) (stripe.Event, error) {
	if signature == "" {
		return stripe.Event{}, ErrMissingSignature
	}

	if r.secret == "" {
		return stripe.Event{}, ErrSecretNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, r.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return event, nil
}

// Apply records the event and then reconciles it. Stripe retries deliveries,
// so every branch must tolerate seeing the same event more than once; the
// audit log does get one row per delivery.
func (r *Reconciler) Apply(ctx context.Context, event stripe.Event) (*Outcome, error) {
	eventType := string(event.Type)
	slog.Info("processing webhook event", "type", eventType, "id", event.ID)

	var data json.RawMessage
	if event.Data != nil {
		data = event.Data.Raw
	}

	created := time.Unix(event.Created, 0).UTC()

	err := r.repo.AppendEvent(ctx, &WebhookEvent{
		EventType:     eventType,
		Type:          category(eventType),
		StripeEventID: event.ID,
		Data:          data,
		CreatedAt:     created,
		ModifiedAt:    created,
	})
	if err != nil {
		return nil, fmt.Errorf("storing webhook event: %w", err)
	}

	switch eventType {
	case "customer.subscription.created":
		return r.subscriptionCreated(ctx, data)
	case "customer.subscription.updated":
		return r.subscriptionUpdated(ctx, data)
	case "customer.subscription.deleted":
		return r.subscriptionDeleted(ctx, data)
	case "checkout.session.completed":
		return r.checkoutCompleted(ctx, data)
	case "invoice.payment_succeeded":
		return r.invoicePayment(ctx, event, data, true)
	case "invoice.payment_failed":
		return r.invoicePayment(ctx, event, data, false)
	default:
		slog.Info("unhandled webhook event", "type", eventType)
		return &Outcome{Message: "Unhandled event type: " + eventType}, nil
	}
}

func category(eventType string) string {
	prefix, _, _ := strings.Cut(eventType, ".")
	return prefix
}

func (r *Reconciler) subscriptionCreated(ctx context.Context, data json.RawMessage) (*Outcome, error) {
	const failed = "Failed to create subscription"

	var sub stripe.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, &Failure{Message: failed, Err: fmt.Errorf("decoding subscription: %w", err)}
	}

	userID := firstNonEmpty(sub.Metadata["user_id"], sub.Metadata["userId"])
	if userID == "" {
		id, err := r.userForCustomer(ctx, sub.Customer)
		if err != nil {
			slog.Error("unable to find associated user", "subscription", sub.ID, "error", err)
			return nil, &Failure{Message: "Unable to find associated user", Err: err}
		}

		userID = id
	}

	s := r.subscriptionFrom(&sub)
	s.UserID = userID

	if err := r.repo.UpsertSubscription(ctx, s); err != nil {
		slog.Error("failed to create subscription", "subscription", sub.ID, "error", err)
		return nil, &Failure{Message: failed, Err: err}
	}

	return &Outcome{Message: "Subscription created successfully"}, nil
}

// userForCustomer resolves the user through the Stripe customer's email.
// Every failure along the way counts as the user not being found.
func (r *Reconciler) userForCustomer(ctx context.Context, customer *stripe.Customer) (string, error) {
	if customer == nil || customer.ID == "" {
		return "", fmt.Errorf("%w: subscription has no customer", ErrUserNotFound)
	}

	c, err := r.provider.GetCustomer(ctx, customer.ID)
	if err != nil {
		return "", fmt.Errorf("%w: retrieving customer: %v", ErrUserNotFound, err)
	}

	if c.Email == "" {
		return "", fmt.Errorf("%w: customer has no email", ErrUserNotFound)
	}

	id, err := r.repo.UserIDByEmail(ctx, c.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", err
		}

		return "", fmt.Errorf("%w: %v", ErrUserNotFound, err)
	}

	return id, nil
}

func (r *Reconciler) subscriptionFrom(sub *stripe.Subscription) *Subscription {
	s := &Subscription{
		StripeID:           sub.ID,
		Currency:           string(sub.Currency),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		StartedAt:          sub.StartDate,
		Metadata:           sub.Metadata,
		CanceledAt:         optionalUnix(sub.CanceledAt),
		EndedAt:            optionalUnix(sub.EndedAt),
	}

	if s.StartedAt == 0 {
		s.StartedAt = r.now().Unix()
	}

	if s.Metadata == nil {
		s.Metadata = map[string]string{}
	}

	if sub.Customer != nil {
		s.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]

		if item.Price != nil {
			s.PriceID = item.Price.ID
			s.StripePriceID = item.Price.ID
		}

		if item.Plan != nil {
			s.Interval = string(item.Plan.Interval)
			s.Amount = item.Plan.Amount
		}
	}

	return s
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, data json.RawMessage) (*Outcome, error) {
	const failed = "Failed to update subscription"

	var sub stripe.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, &Failure{Message: failed, Err: fmt.Errorf("decoding subscription: %w", err)}
	}

	err := r.repo.UpdateSubscription(ctx, sub.ID, SubscriptionUpdate{
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		Metadata:           sub.Metadata,
		CanceledAt:         optionalUnix(sub.CanceledAt),
		EndedAt:            optionalUnix(sub.EndedAt),
	})
	if err != nil {
		slog.Error("failed to update subscription", "subscription", sub.ID, "error", err)
		return nil, &Failure{Message: failed, Err: err}
	}

	return &Outcome{Message: "Subscription updated successfully"}, nil
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, data json.RawMessage) (*Outcome, error) {
	const failed = "Failed to process subscription deletion"

	var sub stripe.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, &Failure{Message: failed, Err: fmt.Errorf("decoding subscription: %w", err)}
	}

	if err := r.repo.UpdateSubscriptionStatus(ctx, sub.ID, string(stripe.SubscriptionStatusCanceled)); err != nil {
		slog.Error("failed to cancel subscription", "subscription", sub.ID, "error", err)
		return nil, &Failure{Message: failed, Err: err}
	}

	if email := sub.Metadata["email"]; email != "" {
		if err := r.repo.ClearUserSubscription(ctx, email); err != nil {
			slog.Error("failed to clear user subscription", "subscription", sub.ID, "error", err)
		}
	}

	return &Outcome{Message: "Subscription deleted successfully"}, nil
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, data json.RawMessage) (*Outcome, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, checkoutFailure(fmt.Errorf("decoding checkout session: %w", err))
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		return &Outcome{Message: "No subscription in checkout session"}, nil
	}

	subID := session.Subscription.ID

	metadata := make(map[string]string, len(session.Metadata)+1)
	for k, v := range session.Metadata {
		metadata[k] = v
	}

	metadata["checkoutSessionId"] = session.ID

	live, err := r.provider.GetSubscription(ctx, subID)
	if err != nil {
		return nil, checkoutFailure(fmt.Errorf("retrieving subscription: %w", err))
	}

	if _, err := r.provider.UpdateSubscriptionMetadata(ctx, subID, metadata); err != nil {
		return nil, checkoutFailure(fmt.Errorf("updating subscription metadata: %w", err))
	}

	err = r.repo.ApplyCheckout(ctx, subID, CheckoutUpdate{
		UserID:             firstNonEmpty(session.Metadata["userId"], session.Metadata["user_id"]),
		Status:             string(live.Status),
		CurrentPeriodStart: live.CurrentPeriodStart,
		CurrentPeriodEnd:   live.CurrentPeriodEnd,
		CancelAtPeriodEnd:  live.CancelAtPeriodEnd,
		Metadata:           metadata,
	})
	if err != nil {
		return nil, checkoutFailure(fmt.Errorf("updating subscription: %w", err))
	}

	return &Outcome{Message: "Checkout session completed successfully", SubscriptionID: subID}, nil
}

func checkoutFailure(err error) *Failure {
	slog.Error("failed to process checkout completion", "error", err)

	return &Failure{
		Message: "Failed to process checkout completion",
		Details: err.Error(),
		Err:     err,
	}
}

func (r *Reconciler) invoicePayment(ctx context.Context, event stripe.Event, data json.RawMessage, succeeded bool) (*Outcome, error) {
	failed := "Failed to process failed payment"
	if succeeded {
		failed = "Failed to process successful payment"
	}

	var inv stripe.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, &Failure{Message: failed, Err: fmt.Errorf("decoding invoice: %w", err)}
	}

	var subID string
	if inv.Subscription != nil {
		subID = inv.Subscription.ID
	}

	email := inv.CustomerEmail

	if subID != "" {
		sub, err := r.repo.GetSubscription(ctx, subID)
		switch {
		case err == nil:
			if e := sub.Metadata["email"]; e != "" {
				email = e
			}
		case !errors.Is(err, ErrSubscriptionNotFound):
			slog.Warn("failed to load subscription for invoice", "subscription", subID, "error", err)
		}
	}

	record := invoiceRecord{
		InvoiceID:      inv.ID,
		SubscriptionID: subID,
		Currency:       string(inv.Currency),
		Email:          email,
	}

	if succeeded {
		record.AmountPaid = money.Compact(inv.AmountPaid)
		record.Status = "succeeded"
	} else {
		record.AmountDue = money.Compact(inv.AmountDue)
		record.Status = "failed"
	}

	body, err := json.Marshal(record)
	if err != nil {
		return nil, &Failure{Message: failed, Err: fmt.Errorf("encoding invoice record: %w", err)}
	}

	now := r.now().UTC()

	err = r.repo.AppendEvent(ctx, &WebhookEvent{
		EventType:     string(event.Type),
		Type:          "invoice",
		StripeEventID: event.ID,
		Data:          body,
		CreatedAt:     now,
		ModifiedAt:    now,
	})
	if err != nil {
		slog.Error("failed to record invoice payment", "invoice", inv.ID, "error", err)
		return nil, &Failure{Message: failed, Err: err}
	}

	if !succeeded {
		if subID != "" {
			if err := r.repo.UpdateSubscriptionStatus(ctx, subID, string(stripe.SubscriptionStatusPastDue)); err != nil {
				slog.Error("failed to mark subscription past due", "subscription", subID, "error", err)
				return nil, &Failure{Message: failed, Err: err}
			}
		}

		return &Outcome{Message: "Invoice payment failed"}, nil
	}

	if email != "" && r.notifier != nil {
		r.sendReceipt(ctx, event.ID, &inv, email)
	}

	return &Outcome{Message: "Invoice payment succeeded"}, nil
}

// sendReceipt is best effort: the payment is already recorded and a
// notifier failure must not make Stripe retry the event.
func (r *Reconciler) sendReceipt(ctx context.Context, eventID string, inv *stripe.Invoice, email string) {
	description := "Subscription"
	if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Description != "" {
		description = inv.Lines.Data[0].Description
	}

	due := inv.DueDate
	if due == 0 {
		due = inv.Created
	}

	msg := notification.Message{
		To:           notification.Recipients{email},
		Subject:      "Payment received - " + firstNonEmpty(inv.Number, inv.ID),
		TemplateName: "payment_invoice",
		Variables: map[string]any{
			"customer_name":    firstNonEmpty(inv.CustomerName, email),
			"invoice_number":   firstNonEmpty(inv.Number, inv.ID),
			"due_date":         time.Unix(due, 0).UTC().Format("January 2, 2006"),
			"item_description": description,
			"amount":           money.Format(inv.AmountPaid, string(inv.Currency)),
		},
	}

	if err := r.notifier.Notify(ctx, eventID+":payment_invoice", msg); err != nil {
		slog.Error("failed to send payment receipt", "invoice", inv.ID, "error", err)
	}
}

func optionalUnix(v int64) *int64 {
	if v == 0 {
		return nil
	}

	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
