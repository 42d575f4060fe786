package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
)

const orderIDMetadata = "order_id"

var (
	ErrBadSignature         = errors.New("invalid webhook signature")
	ErrWebhookNotConfigured = errors.New("payment webhook secret is not configured")
)

// Intent is a created payment the client completes with ClientSecret.
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentEvent is the part of a provider webhook that orders care about.
type PaymentEvent struct {
	Type     string
	IntentID string
	OrderID  string
}

const EventPaymentSucceeded = "payment_intent.succeeded"

// StripePayments creates PaymentIntents and verifies webhooks.
type StripePayments struct {
	webhookSecret string
}

func NewStripePayments(secretKey, webhookSecret string) *StripePayments {
	stripe.Key = secretKey
	return &StripePayments{webhookSecret: webhookSecret}
}

func (p *StripePayments) CreateIntent(ctx context.Context, orderID string, amountCents int64, currency string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(orderIDMetadata, orderID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("StripePayments.CreateIntent: %w", err)
	}
	return Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ParseEvent verifies the Stripe-Signature header against payload. Events
// other than payment intents come back with only Type set. Without a secret
// every event is refused, since anyone can sign with an empty key.
func (p *StripePayments) ParseEvent(payload []byte, signature string) (PaymentEvent, error) {
	if p.webhookSecret == "" {
		return PaymentEvent{}, ErrWebhookNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return PaymentEvent{}, ErrBadSignature
	}

	out := PaymentEvent{Type: string(event.Type)}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return out, nil
	}
	out.IntentID = pi.ID
	out.OrderID = pi.Metadata[orderIDMetadata]
	return out, nil
}
