package directory

import "context"

// ProfessionalRepository defines the persistence contract for professional
// records. Implementations return shared.ErrNotFound when no row matches.
type ProfessionalRepository interface {
	// FindByID finds a professional by its primary id
	FindByID(ctx context.Context, id string) (*Professional, error)

	// FindByStripeCustomerID finds the professional linked to a Stripe
	// customer. An empty customer id resolves to not-found, never an error.
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Professional, error)

	// UpdateFields applies a partial update to the row identified by id.
	// A nil value clears the column to NULL.
	UpdateFields(ctx context.Context, id string, fields map[string]any) error

	// Save creates or updates a professional
	Save(ctx context.Context, professional *Professional) error

	// Delete removes a professional by id
	Delete(ctx context.Context, id string) error
}
