package sync

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/proflow/billing-sync/internal/domain/directory"
	"github.com/proflow/billing-sync/internal/domain/shared"
	"github.com/proflow/billing-sync/internal/infrastructure/billing"
	"github.com/proflow/billing-sync/internal/infrastructure/cache"
)

const testWebhookSecret = "whsec_test_secret"

func newWebhookTestService(repo *MockProfessionalRepository, store shared.IdempotencyStore) *StripeWebhookService {
	return NewStripeWebhookService(StripeWebhookServiceConfig{
		Config: &billing.StripeConfig{
			SecretKey:     "sk_test_xxx",
			WebhookSecret: testWebhookSecret,
			IsTestMode:    true,
		},
		ProfessionalRepo: repo,
		IdempotencyStore: store,
		Logger:           zap.NewNop(),
	})
}

func linkedProfessional(t *testing.T) *directory.Professional {
	professional, err := directory.NewProfessional("p1", "Ada Lovelace")
	require.NoError(t, err)
	require.NoError(t, professional.LinkStripeCustomer("cus_test123"))
	return professional
}

// signPayload produces a Stripe-Signature header value for the given payload
func signPayload(payload []byte, secret string) string {
	timestamp := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func subscriptionEvent(t *testing.T, eventType string, subscription stripe.Subscription) stripe.Event {
	raw, err := json.Marshal(subscription)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_test123",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{
			Raw: raw,
		},
	}
}

func signedEventPayload(t *testing.T, eventID, eventType string, object any) ([]byte, string) {
	raw, err := json.Marshal(object)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": json.RawMessage(raw),
		},
	})
	require.NoError(t, err)

	return payload, signPayload(payload, testWebhookSecret)
}

func TestStripeWebhookService_ProcessWebhook_InvalidSignature(t *testing.T) {
	repo := new(MockProfessionalRepository)
	service := newWebhookTestService(repo, nil)

	payload := []byte(`{"type": "customer.subscription.created"}`)
	result, err := service.ProcessWebhook(context.Background(), payload, "invalid_signature")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "webhook signature verification failed")
}

func TestStripeWebhookService_ProcessWebhook_ValidSignature(t *testing.T) {
	repo := new(MockProfessionalRepository)
	service := newWebhookTestService(repo, nil)
	ctx := context.Background()

	repo.On("FindByStripeCustomerID", ctx, "cus_test123").
		Return(linkedProfessional(t), nil)
	repo.On("UpdateFields", ctx, "p1", map[string]any{
		"stripe_subscription_id": "sub_new123",
	}).Return(nil)

	payload, signature := signedEventPayload(t, "evt_1", "customer.subscription.created", stripe.Subscription{
		ID:       "sub_new123",
		Customer: &stripe.Customer{ID: "cus_test123"},
		Status:   stripe.SubscriptionStatusActive,
	})

	result, err := service.ProcessWebhook(ctx, payload, signature)

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "evt_1", result.EventID)
	assert.Equal(t, "customer.subscription.created", result.EventType)
	repo.AssertExpectations(t)
}

func TestStripeWebhookService_ProcessWebhook_UnhandledType(t *testing.T) {
	repo := new(MockProfessionalRepository)
	service := newWebhookTestService(repo, nil)

	payload, signature := signedEventPayload(t, "evt_1", "charge.succeeded", map[string]any{
		"id": "ch_1",
	})

	result, err := service.ProcessWebhook(context.Background(), payload, signature)

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "Event type not handled", result.Message)
}

func TestStripeWebhookService_ProcessWebhook_DuplicateDelivery(t *testing.T) {
	repo := new(MockProfessionalRepository)
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	service := newWebhookTestService(repo, store)
	ctx := context.Background()

	repo.On("FindByStripeCustomerID", ctx, "cus_test123").
		Return(linkedProfessional(t), nil).Once()
	repo.On("UpdateFields", ctx, "p1", mock.Anything).Return(nil).Once()

	payload, signature := signedEventPayload(t, "evt_dup", "customer.subscription.created", stripe.Subscription{
		ID:       "sub_new123",
		Customer: &stripe.Customer{ID: "cus_test123"},
	})

	first, err := service.ProcessWebhook(ctx, payload, signature)
	require.NoError(t, err)
	assert.True(t, first.Processed)
	assert.Empty(t, first.Message)

	// Same event id again: acknowledged without touching the repository
	second, err := service.ProcessWebhook(ctx, payload, signPayload(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.True(t, second.Processed)
	assert.Equal(t, "Event already processed", second.Message)
	repo.AssertExpectations(t)
}

func TestStripeWebhookService_handleSubscriptionCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("links subscription to professional", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_test123").
			Return(linkedProfessional(t), nil)
		repo.On("UpdateFields", ctx, "p1", map[string]any{
			"stripe_subscription_id": "sub_new123",
		}).Return(nil)

		event := subscriptionEvent(t, "customer.subscription.created", stripe.Subscription{
			ID:       "sub_new123",
			Customer: &stripe.Customer{ID: "cus_test123"},
			Status:   stripe.SubscriptionStatusActive,
		})

		err := service.handleSubscriptionCreated(ctx, event)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unknown customer is acknowledged", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_unknown").
			Return(nil, shared.ErrNotFound)

		event := subscriptionEvent(t, "customer.subscription.created", stripe.Subscription{
			ID:       "sub_new123",
			Customer: &stripe.Customer{ID: "cus_unknown"},
		})

		err := service.handleSubscriptionCreated(ctx, event)

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing customer id is acknowledged", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		event := subscriptionEvent(t, "customer.subscription.created", stripe.Subscription{
			ID: "sub_new123",
		})

		err := service.handleSubscriptionCreated(ctx, event)

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "FindByStripeCustomerID", mock.Anything, mock.Anything)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_test123").
			Return(nil, errors.New("connection reset"))

		event := subscriptionEvent(t, "customer.subscription.created", stripe.Subscription{
			ID:       "sub_new123",
			Customer: &stripe.Customer{ID: "cus_test123"},
		})

		err := service.handleSubscriptionCreated(ctx, event)

		assert.Error(t, err)
	})
}

func TestStripeWebhookService_handleSubscriptionUpdated(t *testing.T) {
	ctx := context.Background()

	t.Run("canceled status clears subscription link", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_test123").
			Return(linkedProfessional(t), nil)
		repo.On("UpdateFields", ctx, "p1", map[string]any{
			"stripe_subscription_id": nil,
		}).Return(nil)

		event := subscriptionEvent(t, "customer.subscription.updated", stripe.Subscription{
			ID:       "sub_test123",
			Customer: &stripe.Customer{ID: "cus_test123"},
			Status:   stripe.SubscriptionStatusCanceled,
		})

		err := service.handleSubscriptionUpdated(ctx, event)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("other statuses leave local state alone", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_test123").
			Return(linkedProfessional(t), nil)

		for _, status := range []stripe.SubscriptionStatus{
			stripe.SubscriptionStatusActive,
			stripe.SubscriptionStatusPastDue,
			stripe.SubscriptionStatusTrialing,
			stripe.SubscriptionStatusUnpaid,
		} {
			event := subscriptionEvent(t, "customer.subscription.updated", stripe.Subscription{
				ID:       "sub_test123",
				Customer: &stripe.Customer{ID: "cus_test123"},
				Status:   status,
			})

			err := service.handleSubscriptionUpdated(ctx, event)
			assert.NoError(t, err)
		}

		repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown customer is acknowledged", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_unknown").
			Return(nil, shared.ErrNotFound)

		event := subscriptionEvent(t, "customer.subscription.updated", stripe.Subscription{
			ID:       "sub_test123",
			Customer: &stripe.Customer{ID: "cus_unknown"},
			Status:   stripe.SubscriptionStatusCanceled,
		})

		err := service.handleSubscriptionUpdated(ctx, event)

		assert.NoError(t, err)
	})
}

func TestStripeWebhookService_handleSubscriptionDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("clears subscription link unconditionally", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_test123").
			Return(linkedProfessional(t), nil)
		repo.On("UpdateFields", ctx, "p1", map[string]any{
			"stripe_subscription_id": nil,
		}).Return(nil)

		event := subscriptionEvent(t, "customer.subscription.deleted", stripe.Subscription{
			ID:       "sub_test123",
			Customer: &stripe.Customer{ID: "cus_test123"},
			Status:   stripe.SubscriptionStatusCanceled,
		})

		err := service.handleSubscriptionDeleted(ctx, event)

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("unknown customer is acknowledged", func(t *testing.T) {
		repo := new(MockProfessionalRepository)
		service := newWebhookTestService(repo, nil)

		repo.On("FindByStripeCustomerID", ctx, "cus_unknown").
			Return(nil, shared.ErrNotFound)

		event := subscriptionEvent(t, "customer.subscription.deleted", stripe.Subscription{
			ID:       "sub_test123",
			Customer: &stripe.Customer{ID: "cus_unknown"},
		})

		err := service.handleSubscriptionDeleted(ctx, event)

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStripeWebhookService_InvoiceEventsLogOnly(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProfessionalRepository)
	service := newWebhookTestService(repo, nil)

	for _, eventType := range []string{"invoice.payment_succeeded", "invoice.payment_failed"} {
		payload, signature := signedEventPayload(t, "evt_"+eventType, eventType, stripe.Invoice{
			ID:       "in_test123",
			Customer: &stripe.Customer{ID: "cus_test123"},
		})

		result, err := service.ProcessWebhook(ctx, payload, signature)

		require.NoError(t, err)
		assert.True(t, result.Processed)
	}

	repo.AssertNotCalled(t, "FindByStripeCustomerID", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}
