package billing

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/zap"
)

// StripeAdapter implements Stripe billing operations for customer lifecycle sync
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Initialize Stripe client
	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreateCustomer creates a new customer in Stripe, tagged with the
// professional's application identity in metadata
func (a *StripeAdapter) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*CreateCustomerOutput, error) {
	a.logger.Debug("Creating Stripe customer",
		zap.String("professional_id", input.ProfessionalID),
		zap.String("name", input.Name))

	params := &stripe.CustomerParams{
		Name: stripe.String(input.Name),
	}
	params.Context = ctx

	params.Metadata = map[string]string{
		"supabase_id": input.ProfessionalID,
		"role":        input.Role,
	}
	maps.Copy(params.Metadata, input.Metadata)

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("professional_id", input.ProfessionalID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("professional_id", input.ProfessionalID),
		zap.String("customer_id", cust.ID))

	return &CreateCustomerOutput{
		CustomerID: cust.ID,
		Name:       cust.Name,
		CreatedAt:  time.Unix(cust.Created, 0),
	}, nil
}

// UpdateCustomerName updates the display name of a customer in Stripe
func (a *StripeAdapter) UpdateCustomerName(ctx context.Context, customerID string, name string) error {
	a.logger.Debug("Updating Stripe customer name",
		zap.String("customer_id", customerID),
		zap.String("name", name))

	params := &stripe.CustomerParams{
		Name: stripe.String(name),
	}
	params.Context = ctx

	if _, err := customer.Update(customerID, params); err != nil {
		a.logger.Error("Failed to update Stripe customer",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return fmt.Errorf("stripe: failed to update customer: %w", err)
	}

	a.logger.Info("Updated Stripe customer name",
		zap.String("customer_id", customerID))
	return nil
}

// DeleteCustomer deletes a customer from Stripe
func (a *StripeAdapter) DeleteCustomer(ctx context.Context, customerID string) error {
	a.logger.Debug("Deleting Stripe customer", zap.String("customer_id", customerID))

	params := &stripe.CustomerParams{}
	params.Context = ctx

	if _, err := customer.Del(customerID, params); err != nil {
		a.logger.Error("Failed to delete Stripe customer",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return fmt.Errorf("stripe: failed to delete customer: %w", err)
	}

	a.logger.Info("Deleted Stripe customer", zap.String("customer_id", customerID))
	return nil
}

// GetSubscription retrieves the current state of a subscription from Stripe
func (a *StripeAdapter) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionInfo, error) {
	a.logger.Debug("Getting Stripe subscription", zap.String("subscription_id", subscriptionID))

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		a.logger.Error("Failed to get Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to get subscription: %w", err)
	}

	info := &SubscriptionInfo{
		SubscriptionID:     sub.ID,
		Status:             mapStripeSubscriptionStatus(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		info.CustomerID = sub.Customer.ID
	}

	return info, nil
}
