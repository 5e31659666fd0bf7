package models

import (
	"strconv"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusDraft     BookingStatus = "DRAFT"
	StatusPending   BookingStatus = "PENDING"
	StatusHold      BookingStatus = "HOLD"
	StatusPaid      BookingStatus = "PAID"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusExpired   BookingStatus = "EXPIRED"
)

// ActiveStatuses are the statuses counted into the active total of a family.
var ActiveStatuses = []BookingStatus{StatusDraft, StatusPending, StatusHold, StatusPaid, StatusConfirmed}

// ClosedStatuses are the statuses counted into the cancelled total of a family.
var ClosedStatuses = []BookingStatus{StatusCancelled, StatusExpired}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusHold, StatusPaid, StatusConfirmed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may happen.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Booking is the server view of a sold excursion. Only DRAFT bookings are
// mutable; everything else is driven by the back office.
type Booking struct {
	ID                int           `json:"id"`
	BookingCode       string        `json:"booking_code,omitempty"`
	Status            BookingStatus `json:"status,omitempty"`
	UIState           BookingStatus `json:"ui_state,omitempty"`
	FamilyID          *int          `json:"family_id,omitempty"`
	Date              string        `json:"date"`
	ExcursionID       int           `json:"excursion_id"`
	ExcursionTitle    string        `json:"excursion_title,omitempty"`
	HotelID           *int          `json:"hotel_id,omitempty"`
	HotelName         string        `json:"hotel_name,omitempty"`
	RegionName        string        `json:"region_name,omitempty"`
	RoomNumber        string        `json:"room_number,omitempty"`
	PickupPointID     *int          `json:"pickup_point_id,omitempty"`
	PickupPointName   string        `json:"pickup_point_name,omitempty"`
	PickupTimeStr     string        `json:"pickup_time_str,omitempty"`
	PickupLat         *Amount       `json:"pickup_lat,omitempty"`
	PickupLng         *Amount       `json:"pickup_lng,omitempty"`
	PickupAddress     string        `json:"pickup_address,omitempty"`
	ExcursionLanguage string        `json:"excursion_language,omitempty"`
	Adults            int           `json:"adults"`
	Children          int           `json:"children"`
	Infants           int           `json:"infants"`
	PriceSource       string        `json:"price_source,omitempty"`
	PricePerAdult     Amount        `json:"price_per_adult"`
	PricePerChild     Amount        `json:"price_per_child"`
	GrossTotal        Amount        `json:"gross_total"`
	NetTotal          Amount        `json:"net_total"`
	Commission        Amount        `json:"commission"`
	Travelers         []int         `json:"travelers,omitempty"`
	TravelersCSV      string        `json:"travelers_csv,omitempty"`
	IsSendable        bool          `json:"is_sendable"`
	CancelReason      string        `json:"cancel_reason,omitempty"`
	Company           *Company      `json:"company,omitempty"`
	MapsURL           string        `json:"maps_url,omitempty"`
	CreatedAt         *time.Time    `json:"created_at,omitempty"`
}

// EffectiveStatus falls back to ui_state for list rows that omit status.
func (b Booking) EffectiveStatus() BookingStatus {
	if b.Status != "" {
		return b.Status
	}
	return b.UIState
}

func (b Booking) CanDelete() bool {
	return b.EffectiveStatus() == StatusDraft
}

func (b Booking) CanCancel() bool {
	s := b.EffectiveStatus()
	return s != StatusDraft && s != StatusCancelled
}

// CanSend reports whether the row may be included in a send batch.
func (b Booking) CanSend() bool {
	return b.IsSendable || b.EffectiveStatus() == StatusDraft
}

// TravelerIDs returns the traveler reference set, reading the CSV encoding
// when the list form is absent.
func (b Booking) TravelerIDs() []int {
	if len(b.Travelers) > 0 {
		return append([]int(nil), b.Travelers...)
	}
	return ParseTravelerCSV(b.TravelersCSV)
}

func (b Booking) PickupPoint() int {
	if b.PickupPointID == nil {
		return 0
	}
	return *b.PickupPointID
}

func ParseTravelerCSV(csv string) []int {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(csv, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// BookingDraft is the create payload for POST bookings/create/.
type BookingDraft struct {
	Date              string  `json:"date" validate:"required,iso_date"`
	Adults            int     `json:"adults" validate:"gte=0"`
	Children          int     `json:"children" validate:"gte=0"`
	Infants           int     `json:"infants" validate:"gte=0"`
	ExcursionID       int     `json:"excursion_id" validate:"required,gt=0"`
	ExcursionTitle    string  `json:"excursion_title"`
	HotelID           *int    `json:"hotel_id"`
	HotelName         string  `json:"hotel_name"`
	RegionName        string  `json:"region_name"`
	PickupPointID     *int    `json:"pickup_point_id"`
	PickupPointName   string  `json:"pickup_point_name"`
	PickupTimeStr     string  `json:"pickup_time_str"`
	PickupLat         *Amount `json:"pickup_lat"`
	PickupLng         *Amount `json:"pickup_lng"`
	PickupAddress     string  `json:"pickup_address"`
	FamilyID          int     `json:"family_id" validate:"required,gt=0"`
	Travelers         []int   `json:"travelers" validate:"required,min=1,dive,gt=0"`
	CompanyID         int     `json:"company_id" validate:"required,gt=0"`
	ExcursionLanguage string  `json:"excursion_language" validate:"required,lang_code"`
	RoomNumber        string  `json:"room_number"`
	PriceSource       string  `json:"price_source"`
	PricePerAdult     Amount  `json:"price_per_adult"`
	PricePerChild     Amount  `json:"price_per_child"`
	GrossTotal        Amount  `json:"gross_total"`
	NetTotal          Amount  `json:"net_total"`
	Commission        Amount  `json:"commission"`
}

func (d BookingDraft) PickupPoint() int {
	if d.PickupPointID == nil {
		return 0
	}
	return *d.PickupPointID
}

// BookingPatch carries the fields of a PATCH/PUT against bookings/{id}/.
type BookingPatch map[string]any

// DraftSnapshot is the last draft list fetched for a family, kept locally so
// the console can show something while the back office is unreachable.
type DraftSnapshot struct {
	FamilyID  int
	Drafts    []Booking
	FetchedAt time.Time
}
