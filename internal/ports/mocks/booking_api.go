package mocks

import (
	"context"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/stretchr/testify/mock"
)

type MockBookingAPI struct {
	mock.Mock
}

func (m *MockBookingAPI) CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingAPI) GetBooking(ctx context.Context, id int) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingAPI) UpdateBooking(ctx context.Context, id int, patch models.BookingPatch, fullReplace bool) (*models.Booking, error) {
	args := m.Called(ctx, id, patch, fullReplace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingAPI) DeleteBooking(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingAPI) CancelBooking(ctx context.Context, id int, reason string) (*models.Booking, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingAPI) FamilyDrafts(ctx context.Context, familyID int) ([]models.Booking, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingAPI) PreviewBatch(ctx context.Context, target models.BatchTarget) (*models.BatchPreview, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchPreview), args.Error(1)
}

func (m *MockBookingAPI) SendBatch(ctx context.Context, target models.BatchTarget) (*models.BatchSendResult, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchSendResult), args.Error(1)
}

func (m *MockBookingAPI) CancelBatch(ctx context.Context, ids []int) (*models.BatchCancelResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchCancelResult), args.Error(1)
}
