package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/ports"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
)

// BookingClient maps booking and traveler operations onto single REST calls.
// It does no policy checks of its own: status gating and duplicate
// protection belong to the caller.
type BookingClient struct {
	rest
}

func NewBookingClient(transport ports.Transport) *BookingClient {
	return &BookingClient{rest{transport: transport}}
}

func (c *BookingClient) CreateBooking(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	var booking models.Booking
	if err := c.call(ctx, http.MethodPost, "bookings/create/", draft, &booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return &booking, nil
}

func (c *BookingClient) GetBooking(ctx context.Context, id int) (*models.Booking, error) {
	var booking models.Booking
	if err := c.call(ctx, http.MethodGet, bookingPath(id), nil, &booking); err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &booking, nil
}

// UpdateBooking sends a PATCH, or a PUT when fullReplace is set.
func (c *BookingClient) UpdateBooking(ctx context.Context, id int, patch models.BookingPatch, fullReplace bool) (*models.Booking, error) {
	method := http.MethodPatch
	if fullReplace {
		method = http.MethodPut
	}
	var booking models.Booking
	if err := c.call(ctx, method, bookingPath(id), patch, &booking); err != nil {
		return nil, fmt.Errorf("update booking %d: %w", id, err)
	}
	return &booking, nil
}

func (c *BookingClient) DeleteBooking(ctx context.Context, id int) error {
	if err := c.call(ctx, http.MethodDelete, bookingPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	return nil
}

func (c *BookingClient) CancelBooking(ctx context.Context, id int, reason string) (*models.Booking, error) {
	body := map[string]string{"reason": reason}
	var booking models.Booking
	if err := c.call(ctx, http.MethodPost, bookingPath(id)+"cancel/", body, &booking); err != nil {
		return nil, fmt.Errorf("cancel booking %d: %w", id, err)
	}
	return &booking, nil
}

// FamilyDrafts lists every booking of a family. The endpoint answers with a
// bare array or wraps it in items/results.
func (c *BookingClient) FamilyDrafts(ctx context.Context, familyID int) ([]models.Booking, error) {
	resp, err := c.transport.Do(ctx, fmt.Sprintf("bookings/family/%d/drafts/", familyID), salesapi.RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("family %d drafts: %w", familyID, err)
	}
	drafts, err := parseItems(resp.JSON)
	if err != nil {
		return nil, fmt.Errorf("family %d drafts: %w", familyID, err)
	}
	return drafts, nil
}

func (c *BookingClient) PreviewBatch(ctx context.Context, target models.BatchTarget) (*models.BatchPreview, error) {
	var preview models.BatchPreview
	if err := c.call(ctx, http.MethodPost, "bookings/batch/preview/", target, &preview); err != nil {
		return nil, fmt.Errorf("preview batch: %w", err)
	}
	return &preview, nil
}

func (c *BookingClient) SendBatch(ctx context.Context, target models.BatchTarget) (*models.BatchSendResult, error) {
	var result models.BatchSendResult
	if err := c.call(ctx, http.MethodPost, "bookings/batch/send/", target, &result); err != nil {
		return nil, fmt.Errorf("send batch: %w", err)
	}
	return &result, nil
}

func (c *BookingClient) CancelBatch(ctx context.Context, ids []int) (*models.BatchCancelResult, error) {
	var result models.BatchCancelResult
	if err := c.call(ctx, http.MethodPost, "bookings/batch/cancel/", models.ForBookings(ids...), &result); err != nil {
		return nil, fmt.Errorf("cancel batch: %w", err)
	}
	return &result, nil
}

func (c *BookingClient) PatchTraveler(ctx context.Context, id int, fields map[string]any) (*models.Traveler, error) {
	var traveler models.Traveler
	if err := c.call(ctx, http.MethodPatch, fmt.Sprintf("travelers/%d/", id), fields, &traveler); err != nil {
		return nil, fmt.Errorf("patch traveler %d: %w", id, err)
	}
	return &traveler, nil
}

type rest struct {
	transport ports.Transport
}

// call performs the request and decodes a JSON answer into out. Answers
// without a JSON body leave out untouched.
func (c rest) call(ctx context.Context, method, target string, body, out any) error {
	resp, err := c.transport.Do(ctx, target, salesapi.RequestOptions{Method: method, Body: body})
	if err != nil {
		return err
	}
	if out == nil || resp.JSON == nil {
		return nil
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func bookingPath(id int) string {
	return fmt.Sprintf("bookings/%d/", id)
}

func parseItems(data json.RawMessage) ([]models.Booking, error) {
	if len(data) == 0 {
		return []models.Booking{}, nil
	}
	if data[0] == '[' {
		var items []models.Booking
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decoding list: %w", err)
		}
		return items, nil
	}

	var wrapped struct {
		Items   []models.Booking `json:"items"`
		Results []models.Booking `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return []models.Booking{}, nil
	}
	switch {
	case wrapped.Items != nil:
		return wrapped.Items, nil
	case wrapped.Results != nil:
		return wrapped.Results, nil
	}
	return []models.Booking{}, nil
}
