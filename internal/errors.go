package models

import "errors"

var (
	ErrDuplicateBooking = errors.New("such a booking is already in the draft list")
	ErrNotDeletable     = errors.New("only DRAFT bookings can be deleted")
	ErrNotCancellable   = errors.New("booking cannot be cancelled in its current status")
	ErrNotEditable      = errors.New("only DRAFT bookings can be edited")
	ErrUnknownBooking   = errors.New("booking is not in the draft list")
	ErrNothingToSend    = errors.New("no rows to send")
	ErrNothingToCancel  = errors.New("no rows available for cancellation")
	ErrNothingSelected  = errors.New("no rows selected")
	ErrInvalidDraft     = errors.New("invalid booking draft")
	ErrPreviewClosed    = errors.New("batch preview is not open")
)
