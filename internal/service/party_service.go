package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/ports"
	"github.com/chrisdamba/excursiondesk/internal/validator"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
)

var ErrUnknownTraveler = errors.New("traveler is not in the party")

// Notice reports a background save that failed after the local state was
// already changed. The local change is kept.
type Notice struct {
	TravelerID int
	Field      string
	Message    string
	Err        error
}

func (n *Notice) Error() string {
	return fmt.Sprintf("saving %s of traveler %d: %s", n.Field, n.TravelerID, n.Message)
}

func (n *Notice) Unwrap() error {
	return n.Err
}

// PartyEditor holds a family party and edits traveler extended fields
// optimistically.
type PartyEditor struct {
	travelers ports.TravelerAPI
	logger    *slog.Logger

	mu     sync.Mutex
	family models.Family
}

func NewPartyEditor(travelers ports.TravelerAPI, family models.Family, logger *slog.Logger) *PartyEditor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	family.Party = slices.Clone(family.Party)
	return &PartyEditor{travelers: travelers, family: family, logger: logger}
}

func (e *PartyEditor) Family() models.Family {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.family
	f.Party = slices.Clone(e.family.Party)
	return f
}

// SetField normalises the value, applies it locally and then saves it. A
// failed save comes back as a Notice while the local value stays.
func (e *PartyEditor) SetField(ctx context.Context, travelerID int, field, value string) (*Notice, error) {
	value = models.NormalizeTravelerField(field, value)

	e.mu.Lock()
	idx := slices.IndexFunc(e.family.Party, func(t models.Traveler) bool { return t.ID == travelerID })
	if idx < 0 {
		e.mu.Unlock()
		return nil, ErrUnknownTraveler
	}
	if err := e.family.Party[idx].SetField(field, value); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	if _, err := e.travelers.PatchTraveler(ctx, travelerID, map[string]any{field: value}); err != nil {
		e.logger.Warn("traveler patch failed", "traveler_id", travelerID, "field", field, "error", err)
		return &Notice{TravelerID: travelerID, Field: field, Message: salesapi.Message(err), Err: err}, nil
	}
	return nil, nil
}

// MissingFields lists, per selected traveler, the extended fields the
// excursion still needs.
func (e *PartyEditor) MissingFields(excursionTitle string, selected []int) map[int][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	missing := map[int][]string{}
	for _, t := range e.family.Party {
		if !slices.Contains(selected, t.ID) {
			continue
		}
		if fields := validator.MissingTravelerFields(excursionTitle, t); len(fields) > 0 {
			missing[t.ID] = fields
		}
	}
	return missing
}

// Selection is what the operator picked on the create form.
type Selection struct {
	ExcursionID    int
	ExcursionTitle string
	Date           string
	Travelers      []int
	CompanyID      int
	Language       string
	RoomNumber     string
}

// BuildDraft assembles the create payload from the family, the selection,
// the first pickup option and the normalised quote.
func BuildDraft(family models.Family, sel Selection, pickup *models.PickupPoint, quote models.NormalizedQuote) models.BookingDraft {
	adults, children := family.Occupancy(sel.Travelers)
	draft := models.BookingDraft{
		Date:              sel.Date,
		Adults:            adults,
		Children:          children,
		ExcursionID:       sel.ExcursionID,
		ExcursionTitle:    sel.ExcursionTitle,
		HotelID:           family.HotelID,
		HotelName:         family.HotelName,
		RegionName:        family.RegionName,
		FamilyID:          family.ID,
		Travelers:         append([]int(nil), sel.Travelers...),
		CompanyID:         sel.CompanyID,
		ExcursionLanguage: sel.Language,
		RoomNumber:        sel.RoomNumber,
		PriceSource:       quote.Source,
		GrossTotal:        quote.Gross,
	}
	if draft.PriceSource == "" {
		draft.PriceSource = "PICKUP"
	}
	if quote.PerAdult != nil {
		draft.PricePerAdult = *quote.PerAdult
	}
	if quote.PerChild != nil {
		draft.PricePerChild = *quote.PerChild
	}
	if pickup != nil {
		id := pickup.ID
		draft.PickupPointID = &id
		draft.PickupPointName = pickup.Label()
		draft.PickupTimeStr = pickup.Time
		draft.PickupLat = pickup.Lat
		draft.PickupLng = pickup.Lng
		draft.PickupAddress = pickup.Address
	}
	return draft
}
