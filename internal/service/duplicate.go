package service

import (
	models "github.com/chrisdamba/excursiondesk/internal"
)

// IsDuplicate compares a create candidate against one existing booking.
// Excursion, date and pickup point must match. Traveler sets are compared
// when both sides carry one; otherwise head counts decide, which cannot tell
// apart different travelers with the same occupancy.
func IsDuplicate(candidate models.BookingDraft, existing models.Booking) bool {
	if candidate.ExcursionID != existing.ExcursionID ||
		candidate.Date != existing.Date ||
		candidate.PickupPoint() != existing.PickupPoint() {
		return false
	}

	ours := candidate.Travelers
	theirs := existing.TravelerIDs()
	if len(ours) > 0 && len(theirs) > 0 {
		return sameSet(ours, theirs)
	}
	return candidate.Adults == existing.Adults &&
		candidate.Children == existing.Children &&
		candidate.Infants == existing.Infants
}

// FindDuplicate returns the first booking in list that the candidate would
// duplicate, or nil.
func FindDuplicate(candidate models.BookingDraft, list []models.Booking) *models.Booking {
	for i := range list {
		if IsDuplicate(candidate, list[i]) {
			return &list[i]
		}
	}
	return nil
}

func sameSet(a, b []int) bool {
	left := make(map[int]struct{}, len(a))
	for _, id := range a {
		left[id] = struct{}{}
	}
	right := make(map[int]struct{}, len(b))
	for _, id := range b {
		if _, ok := left[id]; !ok {
			return false
		}
		right[id] = struct{}{}
	}
	return len(left) == len(right)
}
