package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/ports"
)

// ErrSuperseded is returned for a lookup whose selection changed before it
// finished. Its partial results are dropped.
var ErrSuperseded = errors.New("superseded by a newer selection")

type QuoteResult struct {
	Request models.QuoteRequest
	Pickup  *models.PickupPoint
	Quote   models.NormalizedQuote
}

// QuoteWatcher runs the pickup and pricing lookups for the current
// selection. Starting a new lookup cancels the one in flight.
type QuoteWatcher struct {
	catalog ports.CatalogAPI
	logger  *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewQuoteWatcher(catalog ports.CatalogAPI, logger *slog.Logger) *QuoteWatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &QuoteWatcher{catalog: catalog, logger: logger}
}

// QuoteRequestFor derives the lookup inputs from the family and the selected
// travelers. The pricing service expects at least one adult.
func QuoteRequestFor(family models.Family, excursionID int, date string, selected []int) models.QuoteRequest {
	adults, children := family.Occupancy(selected)
	if adults == 0 {
		adults = 1
	}
	return models.QuoteRequest{
		ExcursionID: excursionID,
		Date:        date,
		FamilyID:    family.ID,
		HotelID:     family.HotelID,
		HotelName:   family.HotelName,
		Travelers:   append([]int(nil), selected...),
		Adults:      adults,
		Children:    children,
	}
}

// Watch looks up pickups and then the quote for req. An incomplete
// selection yields an empty result without any request.
func (w *QuoteWatcher) Watch(ctx context.Context, req models.QuoteRequest) (*QuoteResult, error) {
	scope, seq := w.begin(ctx)
	defer w.end(seq)

	result := &QuoteResult{Request: req}
	if req.ExcursionID == 0 || req.Date == "" {
		return result, nil
	}

	options, err := w.catalog.Pickups(scope, req)
	if w.superseded(seq) {
		return nil, ErrSuperseded
	}
	if err != nil {
		w.logger.Warn("pickup lookup failed", "excursion_id", req.ExcursionID, "date", req.Date, "error", err)
	} else {
		result.Pickup = options.First()
	}

	quote, err := w.catalog.Quote(scope, req)
	if w.superseded(seq) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, fmt.Errorf("quote for excursion %d on %s: %w", req.ExcursionID, req.Date, err)
	}
	result.Quote = quote.Normalize(req.Adults, req.Children)
	return result, nil
}

// Stop cancels the lookup in flight, if any.
func (w *QuoteWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *QuoteWatcher) begin(ctx context.Context) (context.Context, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	scope, cancel := context.WithCancel(ctx)
	w.seq++
	w.cancel = cancel
	return scope, w.seq
}

func (w *QuoteWatcher) end(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seq == seq && w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func (w *QuoteWatcher) superseded(seq uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq != seq
}
