package mocks

import (
	"context"
	"time"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
	"github.com/stretchr/testify/mock"
)

type MockTravelerAPI struct {
	mock.Mock
}

func (m *MockTravelerAPI) PatchTraveler(ctx context.Context, id int, fields map[string]any) (*models.Traveler, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Traveler), args.Error(1)
}

type MockCatalogAPI struct {
	mock.Mock
}

func (m *MockCatalogAPI) GetFamily(ctx context.Context, id int) (*models.Family, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Family), args.Error(1)
}

func (m *MockCatalogAPI) Pickups(ctx context.Context, req models.QuoteRequest) (*models.PickupOptions, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickupOptions), args.Error(1)
}

func (m *MockCatalogAPI) Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) SaveDrafts(ctx context.Context, familyID int, drafts []models.Booking, fetchedAt time.Time) error {
	args := m.Called(ctx, familyID, drafts, fetchedAt)
	return args.Error(0)
}

func (m *MockSnapshotStore) LoadDrafts(ctx context.Context, familyID int) (*models.DraftSnapshot, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DraftSnapshot), args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Do(ctx context.Context, target string, opts salesapi.RequestOptions) (*salesapi.Response, error) {
	args := m.Called(ctx, target, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapi.Response), args.Error(1)
}

func (m *MockTransport) AcquireCSRF(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
