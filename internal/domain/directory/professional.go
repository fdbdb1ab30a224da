package directory

import (
	"strings"
	"time"

	"github.com/proflow/billing-sync/internal/domain/shared"
)

// DefaultRole is the role recorded in billing metadata when the
// database record does not carry one.
const DefaultRole = "PROFESSIONAL"

// Professional represents an application-side professional record that is
// kept in sync with a Stripe customer and subscription.
// The ID is assigned by the application database (Supabase) and is immutable.
type Professional struct {
	ID                   string     `gorm:"type:text;primaryKey" json:"id"`
	FullName             string     `gorm:"type:varchar(200);not null" json:"full_name"`
	Role                 string     `gorm:"type:varchar(50);not null;default:'PROFESSIONAL'" json:"role"`
	StripeCustomerID     *string    `gorm:"type:varchar(255);uniqueIndex" json:"stripe_customer_id"`
	StripeSubscriptionID *string    `gorm:"type:varchar(255)" json:"stripe_subscription_id"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName returns the table name for GORM
func (Professional) TableName() string {
	return "professionals"
}

// NewProfessional creates a new professional record
func NewProfessional(id, fullName string) (*Professional, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("INVALID_ID", "Professional ID cannot be empty")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}

	now := time.Now()
	return &Professional{
		ID:        id,
		FullName:  fullName,
		Role:      DefaultRole,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// LinkStripeCustomer records the Stripe customer created for this
// professional. The link is set exactly once; relinking to a different
// customer is rejected.
func (p *Professional) LinkStripeCustomer(customerID string) error {
	if customerID == "" {
		return shared.ErrInvalidInput
	}
	if p.StripeCustomerID != nil && *p.StripeCustomerID != customerID {
		return shared.ErrAlreadyLinked
	}
	p.StripeCustomerID = &customerID
	p.UpdatedAt = time.Now()
	return nil
}

// SetStripeSubscriptionID records the active Stripe subscription
func (p *Professional) SetStripeSubscriptionID(subscriptionID string) {
	p.StripeSubscriptionID = &subscriptionID
	p.UpdatedAt = time.Now()
}

// ClearStripeSubscription removes the subscription link. Clearing an
// already-clear link is a no-op, so repeated delivery of the same
// cancellation event is safe.
func (p *Professional) ClearStripeSubscription() {
	p.StripeSubscriptionID = nil
	p.UpdatedAt = time.Now()
}

// Rename updates the display name
func (p *Professional) Rename(fullName string) error {
	if strings.TrimSpace(fullName) == "" {
		return shared.NewDomainError("INVALID_NAME", "Full name cannot be empty")
	}
	p.FullName = fullName
	p.UpdatedAt = time.Now()
	return nil
}

// HasStripeCustomer reports whether a billing customer is linked
func (p *Professional) HasStripeCustomer() bool {
	return p.StripeCustomerID != nil && *p.StripeCustomerID != ""
}
