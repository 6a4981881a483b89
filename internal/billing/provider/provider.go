// Package provider adapts the Stripe API client to billing.Provider.
package provider

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type Stripe struct {
	api *client.API
}

func New(secretKey string) *Stripe {
	return &Stripe{api: client.New(secretKey, nil)}
}

// NewWithBackends points the client at custom backends, e.g. a test server.
func NewWithBackends(secretKey string, backends *stripe.Backends) *Stripe {
	return &Stripe{api: client.New(secretKey, backends)}
}

func (s *Stripe) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	c, err := s.api.Customers.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieving customer %s: %w", id, err)
	}

	return c, nil
}

func (s *Stripe) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := s.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieving subscription %s: %w", id, err)
	}

	return sub, nil
}

// UpdateSubscriptionMetadata merges metadata into the subscription's
// metadata on Stripe; keys not mentioned are left alone.
func (s *Stripe) UpdateSubscriptionMetadata(ctx context.Context, id string, metadata map[string]string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	sub, err := s.api.Subscriptions.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("updating subscription %s: %w", id, err)
	}

	return sub, nil
}
