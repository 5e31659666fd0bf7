package ports

import (
	"context"
	"time"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
)

// Transport is the CSRF-aware request client.
type Transport interface {
	Do(ctx context.Context, target string, opts salesapi.RequestOptions) (*salesapi.Response, error)
	AcquireCSRF(ctx context.Context) (string, error)
}

type BookingAPI interface {
	CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error)
	GetBooking(ctx context.Context, id int) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id int, patch models.BookingPatch, fullReplace bool) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int) error
	CancelBooking(ctx context.Context, id int, reason string) (*models.Booking, error)
	FamilyDrafts(ctx context.Context, familyID int) ([]models.Booking, error)
	PreviewBatch(ctx context.Context, target models.BatchTarget) (*models.BatchPreview, error)
	SendBatch(ctx context.Context, target models.BatchTarget) (*models.BatchSendResult, error)
	CancelBatch(ctx context.Context, ids []int) (*models.BatchCancelResult, error)
}

type TravelerAPI interface {
	PatchTraveler(ctx context.Context, id int, fields map[string]any) (*models.Traveler, error)
}

type CatalogAPI interface {
	GetFamily(ctx context.Context, id int) (*models.Family, error)
	Pickups(ctx context.Context, req models.QuoteRequest) (*models.PickupOptions, error)
	Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error)
}

type SnapshotStore interface {
	SaveDrafts(ctx context.Context, familyID int, drafts []models.Booking, fetchedAt time.Time) error
	LoadDrafts(ctx context.Context, familyID int) (*models.DraftSnapshot, error)
}
