package sync

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/proflow/billing-sync/internal/domain/directory"
	"github.com/proflow/billing-sync/internal/infrastructure/billing"
)

// MockProfessionalRepository is a mock implementation of directory.ProfessionalRepository
type MockProfessionalRepository struct {
	mock.Mock
}

func (m *MockProfessionalRepository) FindByID(ctx context.Context, id string) (*directory.Professional, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Professional), args.Error(1)
}

func (m *MockProfessionalRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*directory.Professional, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Professional), args.Error(1)
}

func (m *MockProfessionalRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockProfessionalRepository) Save(ctx context.Context, professional *directory.Professional) error {
	args := m.Called(ctx, professional)
	return args.Error(0)
}

func (m *MockProfessionalRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCustomerBilling is a mock implementation of CustomerBilling
type MockCustomerBilling struct {
	mock.Mock
}

func (m *MockCustomerBilling) CreateCustomer(ctx context.Context, input billing.CreateCustomerInput) (*billing.CreateCustomerOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CreateCustomerOutput), args.Error(1)
}

func (m *MockCustomerBilling) UpdateCustomerName(ctx context.Context, customerID string, name string) error {
	args := m.Called(ctx, customerID, name)
	return args.Error(0)
}

func (m *MockCustomerBilling) DeleteCustomer(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}
