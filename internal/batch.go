package models

import "encoding/json"

// BatchTarget addresses a bulk operation either at a whole family or at an
// explicit list of bookings. Explicit ids win when both are set.
type BatchTarget struct {
	FamilyID   int
	BookingIDs []int
}

func ForFamily(familyID int) BatchTarget {
	return BatchTarget{FamilyID: familyID}
}

func ForBookings(ids ...int) BatchTarget {
	return BatchTarget{BookingIDs: ids}
}

func (t BatchTarget) MarshalJSON() ([]byte, error) {
	if len(t.BookingIDs) > 0 {
		return json.Marshal(struct {
			BookingIDs []int `json:"booking_ids"`
		}{t.BookingIDs})
	}
	return json.Marshal(struct {
		FamilyID int `json:"family_id"`
	}{t.FamilyID})
}

type BatchPreview struct {
	Count int       `json:"count"`
	Total Amount    `json:"total"`
	Items []Booking `json:"items"`
}

// SendableIDs returns ids of the preview rows eligible for sending.
func (p BatchPreview) SendableIDs() []int {
	var ids []int
	for _, it := range p.Items {
		if it.ID != 0 && it.CanSend() {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

type BatchSendResult struct {
	Updated   int    `json:"updated,omitempty"`
	BatchCode string `json:"batch_code,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// Sent is the number of rows the back office reports as moved.
func (r BatchSendResult) Sent() int {
	if r.Count > 0 {
		return r.Count
	}
	return r.Updated
}

type BatchCancelResult struct {
	Cancelled int `json:"cancelled,omitempty"`
	Updated   int `json:"updated,omitempty"`
	Count     int `json:"count,omitempty"`
}
