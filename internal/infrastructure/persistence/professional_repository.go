package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/proflow/billing-sync/internal/domain/directory"
	"github.com/proflow/billing-sync/internal/domain/shared"
)

// GormProfessionalRepository implements directory.ProfessionalRepository using GORM
type GormProfessionalRepository struct {
	db *gorm.DB
}

// NewGormProfessionalRepository creates a new GORM-based professional repository
func NewGormProfessionalRepository(db *gorm.DB) *GormProfessionalRepository {
	return &GormProfessionalRepository{db: db}
}

// FindByID retrieves a professional by its primary key
func (r *GormProfessionalRepository) FindByID(ctx context.Context, id string) (*directory.Professional, error) {
	if id == "" {
		return nil, shared.ErrNotFound
	}

	var professional directory.Professional
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&professional).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find professional: %w", err)
	}

	return &professional, nil
}

// FindByStripeCustomerID retrieves a professional by its linked Stripe customer ID.
// An empty customer ID never matches; it maps to not-found rather than scanning
// for rows with a NULL link.
func (r *GormProfessionalRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*directory.Professional, error) {
	if customerID == "" {
		return nil, shared.ErrNotFound
	}

	var professional directory.Professional
	err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&professional).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find professional by stripe customer: %w", err)
	}

	return &professional, nil
}

// UpdateFields applies a partial update to the professional row. A nil value
// clears the column to NULL.
func (r *GormProfessionalRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if id == "" {
		return shared.ErrNotFound
	}
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&directory.Professional{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update professional: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Save persists a professional, inserting or updating by primary key
func (r *GormProfessionalRepository) Save(ctx context.Context, professional *directory.Professional) error {
	if err := r.db.WithContext(ctx).Save(professional).Error; err != nil {
		return fmt.Errorf("failed to save professional: %w", err)
	}
	return nil
}

// Delete removes a professional by its primary key
func (r *GormProfessionalRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&directory.Professional{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete professional: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
