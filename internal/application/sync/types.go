package sync

import (
	"context"

	"github.com/proflow/billing-sync/internal/infrastructure/billing"
)

// Change types delivered by the database change notifier
const (
	ChangeTypeInsert = "INSERT"
	ChangeTypeUpdate = "UPDATE"
	ChangeTypeDelete = "DELETE"
)

// professionalsTable is the only table whose changes drive billing sync
const professionalsTable = "professionals"

// ProfessionalRecord is the row image carried inside a change notification
type ProfessionalRecord struct {
	ID                   string  `json:"id"`
	FullName             string  `json:"full_name"`
	Role                 string  `json:"role"`
	StripeCustomerID     *string `json:"stripe_customer_id"`
	StripeSubscriptionID *string `json:"stripe_subscription_id"`
}

// ChangeNotification is the payload posted by the database change notifier.
// Record carries the new row image (INSERT/UPDATE), OldRecord the previous
// one (UPDATE/DELETE).
type ChangeNotification struct {
	Type      string              `json:"type"`
	Table     string              `json:"table"`
	Record    *ProfessionalRecord `json:"record"`
	OldRecord *ProfessionalRecord `json:"old_record"`
}

// ChangeResult describes the outcome of processing a change notification.
// Fields are pointers or omitempty so the serialized body carries only what
// applies to the branch taken.
type ChangeResult struct {
	Received         bool   `json:"received,omitempty"`
	Success          bool   `json:"success,omitempty"`
	Synced           *bool  `json:"synced,omitempty"`
	Deleted          bool   `json:"deleted,omitempty"`
	Warning          string `json:"warning,omitempty"`
	StripeCustomerID string `json:"stripe_customer_id,omitempty"`
}

// PartialSuccess reports whether the change was applied locally but the
// billing side could not be reconciled. Such results are still acknowledged
// with HTTP 200.
func (r *ChangeResult) PartialSuccess() bool {
	return r.Warning != ""
}

// CustomerBilling is the slice of billing operations the sync services need
type CustomerBilling interface {
	CreateCustomer(ctx context.Context, input billing.CreateCustomerInput) (*billing.CreateCustomerOutput, error)
	UpdateCustomerName(ctx context.Context, customerID string, name string) error
	DeleteCustomer(ctx context.Context, customerID string) error
}
