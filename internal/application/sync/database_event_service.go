package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/proflow/billing-sync/internal/domain/directory"
	"github.com/proflow/billing-sync/internal/infrastructure/billing"
)

// DatabaseEventService reconciles professional row changes into Stripe.
// It receives change notifications from the application database and mirrors
// them onto the linked Stripe customer.
type DatabaseEventService struct {
	professionalRepo directory.ProfessionalRepository
	billingClient    CustomerBilling
	logger           *zap.Logger
}

// DatabaseEventServiceConfig contains configuration for DatabaseEventService
type DatabaseEventServiceConfig struct {
	ProfessionalRepo directory.ProfessionalRepository
	BillingClient    CustomerBilling
	Logger           *zap.Logger
}

// NewDatabaseEventService creates a new DatabaseEventService
func NewDatabaseEventService(cfg DatabaseEventServiceConfig) *DatabaseEventService {
	return &DatabaseEventService{
		professionalRepo: cfg.ProfessionalRepo,
		billingClient:    cfg.BillingClient,
		logger:           cfg.Logger,
	}
}

// ProcessChangeNotification routes a database change notification to the
// matching reconciliation step. A nil error with a populated result means the
// notification was handled (possibly as a deliberate no-op); an error means
// the notifier should retry.
func (s *DatabaseEventService) ProcessChangeNotification(ctx context.Context, notification ChangeNotification) (*ChangeResult, error) {
	if notification.Table != professionalsTable {
		s.logger.Debug("Ignoring change for unrelated table",
			zap.String("table", notification.Table),
			zap.String("type", notification.Type))
		return &ChangeResult{Received: true}, nil
	}

	s.logger.Info("Processing database change notification",
		zap.String("type", notification.Type),
		zap.String("table", notification.Table))

	switch notification.Type {
	case ChangeTypeInsert:
		return s.handleInsert(ctx, notification)
	case ChangeTypeUpdate:
		return s.handleUpdate(ctx, notification)
	case ChangeTypeDelete:
		return s.handleDelete(ctx, notification)
	default:
		s.logger.Debug("Unhandled change type",
			zap.String("type", notification.Type))
		return &ChangeResult{Received: true}, nil
	}
}

// handleInsert creates a Stripe customer for a newly registered professional
// and writes the customer id back onto the row.
func (s *DatabaseEventService) handleInsert(ctx context.Context, notification ChangeNotification) (*ChangeResult, error) {
	record := notification.Record
	if record == nil || record.ID == "" {
		s.logger.Warn("Insert notification without record payload, skipping")
		return &ChangeResult{Received: true}, nil
	}

	role := record.Role
	if role == "" {
		role = directory.DefaultRole
	}

	output, err := s.billingClient.CreateCustomer(ctx, billing.CreateCustomerInput{
		ProfessionalID: record.ID,
		Name:           record.FullName,
		Role:           role,
	})
	if err != nil {
		s.logger.Error("Failed to create Stripe customer for professional",
			zap.String("professional_id", record.ID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create billing customer: %w", err)
	}

	// The customer now exists in Stripe. If the write-back fails the link is
	// lost and the row keeps a NULL stripe_customer_id; the failure surfaces
	// to the notifier so it can retry, but the orphaned customer is not
	// cleaned up here.
	err = s.professionalRepo.UpdateFields(ctx, record.ID, map[string]any{
		"stripe_customer_id": output.CustomerID,
	})
	if err != nil {
		s.logger.Error("Failed to link Stripe customer to professional",
			zap.String("professional_id", record.ID),
			zap.String("customer_id", output.CustomerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to store billing customer link: %w", err)
	}

	s.logger.Info("Linked new professional to Stripe customer",
		zap.String("professional_id", record.ID),
		zap.String("customer_id", output.CustomerID))

	return &ChangeResult{
		Success:          true,
		StripeCustomerID: output.CustomerID,
	}, nil
}

// handleUpdate pushes a display-name change to Stripe when the name actually
// changed and the row is linked to a customer.
func (s *DatabaseEventService) handleUpdate(ctx context.Context, notification ChangeNotification) (*ChangeResult, error) {
	record := notification.Record
	oldRecord := notification.OldRecord
	if record == nil || oldRecord == nil || record.ID == "" {
		s.logger.Warn("Update notification without row images, skipping")
		return &ChangeResult{Received: true}, nil
	}

	if record.StripeCustomerID == nil || *record.StripeCustomerID == "" {
		s.logger.Debug("Professional has no Stripe customer, nothing to sync",
			zap.String("professional_id", record.ID))
		return &ChangeResult{Received: true}, nil
	}

	if record.FullName == oldRecord.FullName {
		synced := false
		return &ChangeResult{Success: true, Synced: &synced}, nil
	}

	customerID := *record.StripeCustomerID
	if err := s.billingClient.UpdateCustomerName(ctx, customerID, record.FullName); err != nil {
		s.logger.Error("Failed to sync professional name to Stripe",
			zap.String("professional_id", record.ID),
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to sync customer name: %w", err)
	}

	s.logger.Info("Synced professional name to Stripe",
		zap.String("professional_id", record.ID),
		zap.String("customer_id", customerID))

	synced := true
	return &ChangeResult{Success: true, Synced: &synced}, nil
}

// handleDelete removes the Stripe customer after the professional row is
// gone. The row no longer exists, so a billing failure cannot be retried
// against it; it is reported as a warning and still acknowledged.
func (s *DatabaseEventService) handleDelete(ctx context.Context, notification ChangeNotification) (*ChangeResult, error) {
	oldRecord := notification.OldRecord
	if oldRecord == nil || oldRecord.ID == "" {
		s.logger.Warn("Delete notification without old row image, skipping")
		return &ChangeResult{Received: true}, nil
	}

	if oldRecord.StripeCustomerID == nil || *oldRecord.StripeCustomerID == "" {
		s.logger.Debug("Deleted professional had no Stripe customer",
			zap.String("professional_id", oldRecord.ID))
		return &ChangeResult{Received: true}, nil
	}

	customerID := *oldRecord.StripeCustomerID
	if err := s.billingClient.DeleteCustomer(ctx, customerID); err != nil {
		s.logger.Warn("Failed to delete Stripe customer for removed professional",
			zap.String("professional_id", oldRecord.ID),
			zap.String("customer_id", customerID),
			zap.Error(err))
		return &ChangeResult{
			Warning:          "professional deleted but billing customer removal failed",
			StripeCustomerID: customerID,
		}, nil
	}

	s.logger.Info("Deleted Stripe customer for removed professional",
		zap.String("professional_id", oldRecord.ID),
		zap.String("customer_id", customerID))

	return &ChangeResult{
		Success:          true,
		Deleted:          true,
		StripeCustomerID: customerID,
	}, nil
}
