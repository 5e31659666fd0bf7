package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/clock"
	"github.com/chrisdamba/excursiondesk/internal/ports"
	"github.com/chrisdamba/excursiondesk/internal/validator"
	"golang.org/x/sync/errgroup"
)

// DraftBook holds the booking list of one family and keeps it in line with
// the back office. Every mutation is followed by a full refetch that replaces
// the held list; nothing is merged field by field.
//
// Two mutations fired without waiting for each other may have their
// refetches land in either order. The last refetch to complete wins.
type DraftBook struct {
	familyID  int
	api       ports.BookingAPI
	store     ports.SnapshotStore
	clock     clock.Clock
	logger    *slog.Logger
	validator *validator.CustomValidator

	mu        sync.Mutex
	drafts    []models.Booking
	fetchedAt time.Time
	stale     bool
	preview   *models.BatchPreview
	editMode  bool
	selected  map[int]struct{}
}

type DraftOption func(*DraftBook)

// WithSnapshotStore keeps a copy of every fetched list so Restore can show
// something while the back office is unreachable.
func WithSnapshotStore(store ports.SnapshotStore) DraftOption {
	return func(b *DraftBook) {
		b.store = store
	}
}

func WithClock(c clock.Clock) DraftOption {
	return func(b *DraftBook) {
		b.clock = c
	}
}

func WithLogger(logger *slog.Logger) DraftOption {
	return func(b *DraftBook) {
		b.logger = logger
	}
}

func WithValidator(v *validator.CustomValidator) DraftOption {
	return func(b *DraftBook) {
		b.validator = v
	}
}

func NewDraftBook(familyID int, api ports.BookingAPI, opts ...DraftOption) *DraftBook {
	b := &DraftBook{
		familyID:  familyID,
		api:       api,
		clock:     clock.NewSystem(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		validator: validator.NewCustomValidator(),
		selected:  map[int]struct{}{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type Totals struct {
	Active    models.Amount
	Cancelled models.Amount
}

func (b *DraftBook) FamilyID() int {
	return b.familyID
}

// Drafts returns a copy of the held list.
func (b *DraftBook) Drafts() []models.Booking {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.drafts)
}

// Stale reports whether the held list may lag behind the server, either
// because the last refetch failed or because it came from a snapshot.
func (b *DraftBook) Stale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

func (b *DraftBook) FetchedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetchedAt
}

// Refresh refetches the family list and replaces the held one wholesale.
func (b *DraftBook) Refresh(ctx context.Context) error {
	drafts, err := b.api.FamilyDrafts(ctx, b.familyID)
	if err != nil {
		b.mu.Lock()
		b.stale = true
		b.mu.Unlock()
		return fmt.Errorf("refreshing drafts: %w", err)
	}
	if drafts == nil {
		drafts = []models.Booking{}
	}

	now := b.clock.Now()
	b.mu.Lock()
	b.drafts = drafts
	b.fetchedAt = now
	b.stale = false
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.SaveDrafts(ctx, b.familyID, drafts, now); err != nil {
			b.logger.Warn("saving draft snapshot failed", "family_id", b.familyID, "error", err)
		}
	}
	return nil
}

// Restore seeds the held list from the last saved snapshot. The list stays
// marked stale until a Refresh succeeds.
func (b *DraftBook) Restore(ctx context.Context) (bool, error) {
	if b.store == nil {
		return false, nil
	}
	snap, err := b.store.LoadDrafts(ctx, b.familyID)
	if err != nil {
		return false, fmt.Errorf("restoring drafts: %w", err)
	}
	if snap == nil {
		return false, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.drafts = snap.Drafts
	b.fetchedAt = snap.FetchedAt
	b.stale = true
	return true, nil
}

// Create validates the draft, refuses it when it duplicates a held booking
// and otherwise submits it.
func (b *DraftBook) Create(ctx context.Context, draft models.BookingDraft) (*models.Booking, error) {
	if draft.FamilyID == 0 {
		draft.FamilyID = b.familyID
	}
	if b.validator != nil {
		if err := b.validator.Validate(draft); err != nil {
			return nil, fmt.Errorf("%w: %s", models.ErrInvalidDraft, validator.Describe(err))
		}
	}
	if dup := FindDuplicate(draft, b.Drafts()); dup != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrDuplicateBooking, bookingLabel(*dup))
	}

	created, err := b.api.CreateBooking(ctx, draft)
	if err != nil {
		return nil, err
	}
	b.logger.Info("booking created", "family_id", b.familyID, "booking_id", created.ID)
	b.afterWrite(ctx)
	return created, nil
}

func (b *DraftBook) Update(ctx context.Context, id int, patch models.BookingPatch, fullReplace bool) (*models.Booking, error) {
	row, ok := b.row(id)
	if !ok {
		return nil, models.ErrUnknownBooking
	}
	if row.EffectiveStatus() != models.StatusDraft {
		return nil, models.ErrNotEditable
	}

	updated, err := b.api.UpdateBooking(ctx, id, patch, fullReplace)
	if err != nil {
		return nil, err
	}
	b.afterWrite(ctx)
	return updated, nil
}

// Delete removes a DRAFT booking. Rows in any other status are refused
// without contacting the server.
func (b *DraftBook) Delete(ctx context.Context, id int) error {
	row, ok := b.row(id)
	if !ok {
		return models.ErrUnknownBooking
	}
	if !row.CanDelete() {
		return models.ErrNotDeletable
	}

	if err := b.api.DeleteBooking(ctx, id); err != nil {
		return err
	}
	b.unselect(id)
	b.afterWrite(ctx)
	return nil
}

// Cancel cancels a booking that has left DRAFT and is not cancelled yet.
func (b *DraftBook) Cancel(ctx context.Context, id int, reason string) (*models.Booking, error) {
	row, ok := b.row(id)
	if !ok {
		return nil, models.ErrUnknownBooking
	}
	if !row.CanCancel() {
		return nil, models.ErrNotCancellable
	}

	cancelled, err := b.api.CancelBooking(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	b.afterWrite(ctx)
	return cancelled, nil
}

// DeleteSelected deletes the selected DRAFT rows concurrently and then
// refetches the list and the open preview. Non-draft rows in the selection
// are left alone.
func (b *DraftBook) DeleteSelected(ctx context.Context) (int, error) {
	selected := b.Selected()
	if len(selected) == 0 {
		return 0, models.ErrNothingSelected
	}
	var ids []int
	for _, id := range selected {
		if row, ok := b.row(id); ok && row.CanDelete() {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, models.ErrNotDeletable
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return b.api.DeleteBooking(gctx, id)
		})
	}
	err := g.Wait()

	b.afterWrite(ctx)
	b.reloadPreview(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CancelSelected cancels the cancellable rows of the selection in one batch.
func (b *DraftBook) CancelSelected(ctx context.Context) (*models.BatchCancelResult, error) {
	selected := b.Selected()
	if len(selected) == 0 {
		return nil, models.ErrNothingSelected
	}
	var ids []int
	for _, id := range selected {
		if row, ok := b.row(id); ok && row.CanCancel() {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, models.ErrNothingToCancel
	}

	result, err := b.api.CancelBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	b.afterWrite(ctx)
	b.reloadPreview(ctx)
	return result, nil
}

// OpenPreview fetches the batch preview for the family. Edit mode is reset
// and the selection becomes exactly the sendable rows.
func (b *DraftBook) OpenPreview(ctx context.Context) (*models.BatchPreview, error) {
	preview, err := b.api.PreviewBatch(ctx, models.ForFamily(b.familyID))
	if err != nil {
		b.mu.Lock()
		b.preview = nil
		b.mu.Unlock()
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.preview = preview
	b.editMode = false
	b.selected = map[int]struct{}{}
	for _, id := range preview.SendableIDs() {
		b.selected[id] = struct{}{}
	}
	p := *preview
	p.Items = slices.Clone(preview.Items)
	return &p, nil
}

func (b *DraftBook) ClosePreview() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preview = nil
	b.editMode = false
}

func (b *DraftBook) PreviewOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preview != nil
}

func (b *DraftBook) SetEditMode(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.editMode = on
}

func (b *DraftBook) EditMode() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editMode
}

// Toggle flips one row in or out of the selection.
func (b *DraftBook) Toggle(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.selected[id]; ok {
		delete(b.selected, id)
		return
	}
	b.selected[id] = struct{}{}
}

// ToggleAll selects every preview row, or clears the selection when every
// row is already selected.
func (b *DraftBook) ToggleAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	var all []int
	if b.preview != nil {
		for _, it := range b.preview.Items {
			if it.ID != 0 {
				all = append(all, it.ID)
			}
		}
	}
	if len(b.selected) == len(all) {
		b.selected = map[int]struct{}{}
		return
	}
	b.selected = make(map[int]struct{}, len(all))
	for _, id := range all {
		b.selected[id] = struct{}{}
	}
}

// Selected returns the selected ids in ascending order.
func (b *DraftBook) Selected() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int, 0, len(b.selected))
	for id := range b.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SendBatch sends the rows of the open preview. In edit mode the selection
// decides, otherwise every sendable row goes. Ids are always sent
// explicitly.
func (b *DraftBook) SendBatch(ctx context.Context) (*models.BatchSendResult, error) {
	ids, err := b.sendIDs()
	if err != nil {
		return nil, err
	}

	result, err := b.api.SendBatch(ctx, models.ForBookings(ids...))
	if err != nil {
		return nil, err
	}
	b.logger.Info("batch sent", "family_id", b.familyID, "rows", len(ids), "batch_code", result.BatchCode)
	b.afterWrite(ctx)
	b.ClosePreview()
	return result, nil
}

// Totals sums gross totals of active and of closed bookings.
func (b *DraftBook) Totals() Totals {
	b.mu.Lock()
	defer b.mu.Unlock()
	var t Totals
	for _, d := range b.drafts {
		status := d.EffectiveStatus()
		switch {
		case slices.Contains(models.ActiveStatuses, status):
			t.Active += d.GrossTotal
		case slices.Contains(models.ClosedStatuses, status):
			t.Cancelled += d.GrossTotal
		}
	}
	return t
}

func (b *DraftBook) sendIDs() ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.preview == nil {
		return nil, models.ErrPreviewClosed
	}

	var ids []int
	if b.editMode {
		for _, it := range b.preview.Items {
			if _, ok := b.selected[it.ID]; ok && it.ID != 0 && it.CanSend() {
				ids = append(ids, it.ID)
			}
		}
	} else {
		ids = b.preview.SendableIDs()
	}
	if len(ids) == 0 {
		return nil, models.ErrNothingToSend
	}
	return ids, nil
}

// row finds a booking by id in the held list, then in the open preview.
func (b *DraftBook) row(id int) (models.Booking, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.drafts {
		if d.ID == id {
			return d, true
		}
	}
	if b.preview != nil {
		for _, it := range b.preview.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return models.Booking{}, false
}

func (b *DraftBook) unselect(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.selected, id)
}

// afterWrite refetches after a successful mutation. A failed refetch does
// not fail the mutation; the list is left marked stale instead.
func (b *DraftBook) afterWrite(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil {
		b.logger.Warn("refetch after write failed", "family_id", b.familyID, "error", err)
	}
}

func (b *DraftBook) reloadPreview(ctx context.Context) {
	if !b.PreviewOpen() {
		return
	}
	if _, err := b.OpenPreview(ctx); err != nil {
		b.logger.Warn("preview reload failed", "family_id", b.familyID, "error", err)
	}
}

func bookingLabel(b models.Booking) string {
	if b.BookingCode != "" {
		return b.BookingCode
	}
	return fmt.Sprintf("#%d", b.ID)
}
