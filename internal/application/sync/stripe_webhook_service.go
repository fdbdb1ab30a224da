package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/proflow/billing-sync/internal/domain/directory"
	"github.com/proflow/billing-sync/internal/domain/shared"
	"github.com/proflow/billing-sync/internal/infrastructure/billing"
)

// StripeWebhookService handles Stripe webhook events and reflects
// subscription lifecycle changes back onto professional rows.
type StripeWebhookService struct {
	config           *billing.StripeConfig
	professionalRepo directory.ProfessionalRepository
	idempotencyStore shared.IdempotencyStore
	idempotencyCfg   shared.IdempotencyConfig
	logger           *zap.Logger
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Config           *billing.StripeConfig
	ProfessionalRepo directory.ProfessionalRepository
	IdempotencyStore shared.IdempotencyStore
	IdempotencyCfg   shared.IdempotencyConfig
	Logger           *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService.
// The idempotency store is optional; without one every delivery is processed.
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	idemCfg := cfg.IdempotencyCfg
	if idemCfg.TTL == 0 {
		idemCfg = shared.DefaultIdempotencyConfig()
	}
	return &StripeWebhookService{
		config:           cfg.Config,
		professionalRepo: cfg.ProfessionalRepo,
		idempotencyStore: cfg.IdempotencyStore,
		idempotencyCfg:   idemCfg,
		logger:           cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and processes a Stripe webhook event. A non-nil
// error with a nil result means the payload itself was bad (signature or
// parse failure); business failures after verification return a result the
// handler can still acknowledge.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature",
			zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	if s.alreadyProcessed(ctx, event.ID) {
		result.Message = "Event already processed"
		return result, nil
	}

	switch event.Type {
	case "customer.subscription.created":
		err = s.handleSubscriptionCreated(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		err = s.handleInvoicePaymentSucceeded(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// alreadyProcessed marks the event id in the idempotency store and reports
// whether it was seen before. Store failures are logged and treated as
// first-time deliveries; the sync operations themselves are idempotent.
func (s *StripeWebhookService) alreadyProcessed(ctx context.Context, eventID string) bool {
	if s.idempotencyStore == nil || eventID == "" {
		return false
	}

	fresh, err := s.idempotencyStore.MarkProcessed(ctx, eventID, s.idempotencyCfg.TTL)
	if err != nil {
		s.logger.Warn("Idempotency store unavailable, processing anyway",
			zap.String("event_id", eventID),
			zap.Error(err))
		return false
	}
	if !fresh {
		s.logger.Info("Skipping already processed webhook event",
			zap.String("event_id", eventID))
	}
	return !fresh
}

// resolveProfessional looks up the professional linked to a Stripe customer.
// A nil professional with a nil error means the event is dangling: it belongs
// to a customer this system never linked, which is acknowledged, not failed.
func (s *StripeWebhookService) resolveProfessional(ctx context.Context, customerID string) (*directory.Professional, error) {
	if customerID == "" {
		s.logger.Warn("Webhook event has no customer ID, skipping")
		return nil, nil
	}

	professional, err := s.professionalRepo.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No professional linked to Stripe customer",
				zap.String("customer_id", customerID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find professional: %w", err)
	}

	return professional, nil
}

// handleSubscriptionCreated handles customer.subscription.created events
func (s *StripeWebhookService) handleSubscriptionCreated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := subscriptionCustomerID(&subscription)
	s.logger.Info("Handling subscription created",
		zap.String("subscription_id", subscription.ID),
		zap.String("customer_id", customerID),
		zap.String("status", string(subscription.Status)))

	professional, err := s.resolveProfessional(ctx, customerID)
	if err != nil || professional == nil {
		return err
	}

	err = s.professionalRepo.UpdateFields(ctx, professional.ID, map[string]any{
		"stripe_subscription_id": subscription.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to store subscription link: %w", err)
	}

	s.logger.Info("Linked subscription to professional",
		zap.String("professional_id", professional.ID),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// handleSubscriptionUpdated handles customer.subscription.updated events.
// Only a transition into canceled changes local state; all other statuses are
// observed and left alone.
func (s *StripeWebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := subscriptionCustomerID(&subscription)
	s.logger.Info("Handling subscription updated",
		zap.String("subscription_id", subscription.ID),
		zap.String("customer_id", customerID),
		zap.String("status", string(subscription.Status)))

	professional, err := s.resolveProfessional(ctx, customerID)
	if err != nil || professional == nil {
		return err
	}

	if subscription.Status != stripe.SubscriptionStatusCanceled {
		s.logger.Debug("Subscription status change requires no local update",
			zap.String("professional_id", professional.ID),
			zap.String("status", string(subscription.Status)))
		return nil
	}

	err = s.professionalRepo.UpdateFields(ctx, professional.ID, map[string]any{
		"stripe_subscription_id": nil,
	})
	if err != nil {
		return fmt.Errorf("failed to clear subscription link: %w", err)
	}

	s.logger.Info("Cleared canceled subscription from professional",
		zap.String("professional_id", professional.ID),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// handleSubscriptionDeleted handles customer.subscription.deleted events
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := subscriptionCustomerID(&subscription)
	s.logger.Info("Handling subscription deleted",
		zap.String("subscription_id", subscription.ID),
		zap.String("customer_id", customerID))

	professional, err := s.resolveProfessional(ctx, customerID)
	if err != nil || professional == nil {
		return err
	}

	err = s.professionalRepo.UpdateFields(ctx, professional.ID, map[string]any{
		"stripe_subscription_id": nil,
	})
	if err != nil {
		return fmt.Errorf("failed to clear subscription link: %w", err)
	}

	s.logger.Info("Cleared deleted subscription from professional",
		zap.String("professional_id", professional.ID),
		zap.String("subscription_id", subscription.ID))

	return nil
}

// handleInvoicePaymentSucceeded handles invoice.payment_succeeded events.
// Payment outcomes carry no synced state, so they are recorded in the log
// only.
func (s *StripeWebhookService) handleInvoicePaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}

	s.logger.Info("Invoice payment succeeded",
		zap.String("invoice_id", invoice.ID),
		zap.String("customer_id", customerID),
		zap.Int64("amount_paid", invoice.AmountPaid),
		zap.String("currency", string(invoice.Currency)))

	return nil
}

// handleInvoicePaymentFailed handles invoice.payment_failed events
func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}

	s.logger.Warn("Invoice payment failed",
		zap.String("invoice_id", invoice.ID),
		zap.String("customer_id", customerID),
		zap.Int64("amount_due", invoice.AmountDue),
		zap.String("currency", string(invoice.Currency)))

	return nil
}

// subscriptionCustomerID safely extracts the customer ID from a subscription
func subscriptionCustomerID(subscription *stripe.Subscription) string {
	if subscription.Customer != nil {
		return subscription.Customer.ID
	}
	return ""
}
