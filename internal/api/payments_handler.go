package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v84"

	"github.com/vidspark/vidspark/internal/billing"
	"github.com/vidspark/vidspark/internal/ledger"
	"github.com/vidspark/vidspark/internal/metrics"
	"github.com/vidspark/vidspark/internal/user"
)

// PaymentsProvider is the payment processor boundary. Satisfied by
// *billing.Billing.
type PaymentsProvider interface {
	EnsureCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error)
	CreatePaymentIntent(ctx context.Context, customerID, userID string, pack *billing.CreditPack) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error)
}

// CreditGranter is the slice of the ledger the payment paths need.
type CreditGranter interface {
	GrantCredits(ctx context.Context, userID string, amount int64, eventID string) (bool, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	AttachStripeCustomer(ctx context.Context, userID, stripeCustomerID string) error
}

type PaymentsHandler struct {
	billing PaymentsProvider
	ledger  CreditGranter
	log     *logrus.Logger
	metrics *metrics.Metrics
}

func NewPaymentsHandler(billing PaymentsProvider, ledger CreditGranter, log *logrus.Logger, m *metrics.Metrics) *PaymentsHandler {
	return &PaymentsHandler{
		billing: billing,
		ledger:  ledger,
		log:     log,
		metrics: m,
	}
}

type createIntentRequest struct {
	PackID string `json:"pack_id"`
}

type createIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	CustomerID   string `json:"customer_id"`
}

type packResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Credits     int64  `json:"credits"`
	PriceCents  int64  `json:"price_cents"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type confirmPaymentResponse struct {
	Applied        bool  `json:"applied"`
	CreditsGranted int64 `json:"credits_granted"`
	Balance        int64 `json:"balance"`
}

func (h *PaymentsHandler) ListPacks(w http.ResponseWriter, r *http.Request) {
	packs := make([]packResponse, 0, len(billing.PackOrder))
	for _, id := range billing.PackOrder {
		p := billing.Packs[id]
		packs = append(packs, packResponse{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Credits:     p.Credits,
			PriceCents:  p.PriceCents,
		})
	}
	writeJSON(w, h.log, packs)
}

// CreateIntent opens a payment for the selected credit pack. The Stripe
// customer is created lazily on the first purchase.
func (h *PaymentsHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	account, ok := user.GetAccountFromContext(r.Context())
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "Account not found")
		return
	}

	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PackID == "" {
		req.PackID = "standard"
	}

	pack := billing.GetPack(req.PackID)
	if pack == nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid pack_id")
		return
	}

	customerID, err := h.ensureCustomer(r.Context(), account.ID, account.Email, account.StripeCustomerID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", account.ID).Error("Failed to ensure Stripe customer")
		writeError(w, h.log, http.StatusInternalServerError, "Failed to create payment")
		return
	}

	intent, err := h.billing.CreatePaymentIntent(r.Context(), customerID, account.ID, pack)
	if err != nil {
		h.log.WithError(err).WithField("user_id", account.ID).Error("Failed to create payment intent")
		writeError(w, h.log, http.StatusInternalServerError, "Failed to create payment")
		return
	}

	writeJSON(w, h.log, createIntentResponse{
		ClientSecret: intent.ClientSecret,
		CustomerID:   customerID,
	})
}

func (h *PaymentsHandler) ensureCustomer(ctx context.Context, userID, email string, existing *string) (string, error) {
	if existing != nil && *existing != "" {
		return *existing, nil
	}

	customer, err := h.billing.EnsureCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}
	if err := h.ledger.AttachStripeCustomer(ctx, userID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// ConfirmPayment is the client-initiated confirmation path. The caller
// supplies only the payment intent id; grant details come from the
// intent's metadata, and the intent must belong to the caller.
func (h *PaymentsHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	account, ok := user.GetAccountFromContext(r.Context())
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "Account not found")
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, h.log, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	intent, err := h.billing.GetPaymentIntent(r.Context(), req.PaymentIntentID)
	if err != nil {
		h.log.WithError(err).WithField("payment_intent_id", req.PaymentIntentID).Error("Failed to retrieve payment intent")
		writeError(w, h.log, http.StatusBadGateway, "Failed to verify payment")
		return
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		writeError(w, h.log, http.StatusConflict, "Payment has not succeeded")
		return
	}

	userID, credits, err := grantFromMetadata(intent.Metadata)
	if err != nil {
		h.log.WithError(err).WithField("payment_intent_id", intent.ID).Warn("Payment intent missing grant metadata")
		writeError(w, h.log, http.StatusUnprocessableEntity, "Payment is not a credit purchase")
		return
	}
	if userID != account.ID {
		writeError(w, h.log, http.StatusForbidden, "Payment belongs to another account")
		return
	}

	applied, err := h.ledger.GrantCredits(r.Context(), userID, credits, intent.ID)
	if err != nil {
		h.log.WithError(err).WithField("payment_intent_id", intent.ID).Error("Failed to grant credits")
		writeError(w, h.log, http.StatusInternalServerError, "Failed to apply payment")
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Failed to read balance after grant")
		writeError(w, h.log, http.StatusInternalServerError, "Failed to apply payment")
		return
	}

	writeJSON(w, h.log, confirmPaymentResponse{
		Applied:        applied,
		CreditsGranted: credits,
		Balance:        balance,
	})
}

type paymentIntentEvent struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// HandleWebhook is the server-pushed confirmation path. Signature
// verification gates everything; the grant itself is idempotent, so
// Stripe's redeliveries are harmless.
func (h *PaymentsHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.WithError(err).Error("Failed to read webhook body")
		writeError(w, h.log, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(payload, signature)
	if err != nil {
		h.metrics.WebhookSignatureFailures.Inc()
		h.log.WithError(err).Warn("Webhook signature verification failed")
		writeError(w, h.log, http.StatusUnauthorized, "Invalid signature")
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		if err := h.handlePaymentSucceeded(r.Context(), event); err != nil {
			h.log.WithError(err).WithField("event_id", event.ID).Error("Webhook handling failed")
			writeError(w, h.log, http.StatusInternalServerError, "Webhook handling failed")
			return
		}
	default:
		h.log.WithField("event_type", event.Type).Debug("Ignoring unhandled Stripe event type")
	}

	w.WriteHeader(http.StatusOK)
}

func (h *PaymentsHandler) handlePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	intent, err := parseEventData[paymentIntentEvent](event)
	if err != nil {
		return fmt.Errorf("failed to parse payment intent: %w", err)
	}

	userID, credits, err := grantFromMetadata(intent.Metadata)
	if err != nil {
		// Not a credit purchase; acknowledge without granting.
		h.log.WithFields(logrus.Fields{
			"payment_intent_id": intent.ID,
			"reason":            err.Error(),
		}).Info("Skipping payment intent without grant metadata")
		return nil
	}

	if _, err := h.ledger.GrantCredits(ctx, userID, credits, intent.ID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("no account for user %s: %w", userID, err)
		}
		return err
	}
	return nil
}

func grantFromMetadata(metadata map[string]string) (string, int64, error) {
	userID := metadata[billing.MetadataUserID]
	if userID == "" {
		return "", 0, errors.New("missing user_id metadata")
	}

	credits, err := strconv.ParseInt(metadata[billing.MetadataCredits], 10, 64)
	if err != nil || credits <= 0 {
		return "", 0, fmt.Errorf("invalid credits metadata %q", metadata[billing.MetadataCredits])
	}
	return userID, credits, nil
}

func parseEventData[T any](event *stripe.Event) (*T, error) {
	var data T
	if err := json.Unmarshal(event.Data.Raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
