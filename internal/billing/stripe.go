package billing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// Metadata keys attached to payment intents at creation time. Both
// confirmation paths recover the grant from these instead of trusting
// client-supplied amounts.
const (
	MetadataUserID  = "user_id"
	MetadataCredits = "credits"
)

type Billing struct {
	sc            *stripe.Client
	webhookSecret string
}

func New(secretKey, webhookSecret string) *Billing {
	return &Billing{
		sc:            stripe.NewClient(secretKey),
		webhookSecret: webhookSecret,
	}
}

// EnsureCustomer finds the Stripe customer for the given email or
// creates one tagged with our user id.
func (b *Billing) EnsureCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Limit = stripe.Int64(1)
	for c, err := range b.sc.V1Customers.List(ctx, listParams) {
		if err != nil {
			return nil, fmt.Errorf("failed to list customers: %w", err)
		}
		return c, nil
	}

	params := &stripe.CustomerCreateParams{
		Email:    stripe.String(email),
		Metadata: map[string]string{MetadataUserID: userID},
	}
	customer, err := b.sc.V1Customers.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// CreatePaymentIntent opens a payment for one credit pack. The intended
// grant rides along as intent metadata so the confirmation paths can
// recompute nothing.
func (b *Billing) CreatePaymentIntent(ctx context.Context, customerID, userID string, pack *CreditPack) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(pack.PriceCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		Customer: stripe.String(customerID),
		Metadata: map[string]string{
			MetadataUserID:  userID,
			MetadataCredits: strconv.FormatInt(pack.Credits, 10),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	intent, err := b.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intent, nil
}

// GetPaymentIntent retrieves an intent for the client confirmation path.
func (b *Billing) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	intent, err := b.sc.V1PaymentIntents.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", id, err)
	}
	return intent, nil
}

func (b *Billing) VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, b.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return &event, nil
}
