package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

const schema = `
        CREATE TABLE IF NOT EXISTS draft_snapshots (
            family_id  INTEGER PRIMARY KEY,
            payload    JSONB NOT NULL,
            fetched_at TIMESTAMPTZ NOT NULL
        )
    `

// SnapshotRepository keeps the last draft list fetched per family.
type SnapshotRepository struct {
	db DBConn
}

func NewSnapshotRepository(db DBConn) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating draft_snapshots: %w", err)
	}
	return nil
}

// SaveDrafts overwrites the family's snapshot unless a newer one is stored.
func (r *SnapshotRepository) SaveDrafts(ctx context.Context, familyID int, drafts []models.Booking, fetchedAt time.Time) error {
	if drafts == nil {
		drafts = []models.Booking{}
	}
	payload, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("encoding drafts: %w", err)
	}

	query := `
        INSERT INTO draft_snapshots (family_id, payload, fetched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (family_id) DO UPDATE
        SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at
        WHERE draft_snapshots.fetched_at <= EXCLUDED.fetched_at
    `
	if _, err := r.db.Exec(ctx, query, familyID, payload, fetchedAt); err != nil {
		return fmt.Errorf("saving snapshot for family %d: %w", familyID, err)
	}
	return nil
}

// LoadDrafts returns nil without error when no snapshot exists.
func (r *SnapshotRepository) LoadDrafts(ctx context.Context, familyID int) (*models.DraftSnapshot, error) {
	query := `
        SELECT payload, fetched_at
        FROM draft_snapshots
        WHERE family_id = $1
    `
	var payload []byte
	snap := &models.DraftSnapshot{FamilyID: familyID}
	err := r.db.QueryRow(ctx, query, familyID).Scan(&payload, &snap.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for family %d: %w", familyID, err)
	}
	if err := json.Unmarshal(payload, &snap.Drafts); err != nil {
		return nil, fmt.Errorf("decoding snapshot for family %d: %w", familyID, err)
	}
	return snap, nil
}

// SnapshotInfo describes one stored snapshot without its payload.
type SnapshotInfo struct {
	FamilyID  int
	Rows      int
	FetchedAt time.Time
}

func (r *SnapshotRepository) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	query := `
        SELECT family_id, jsonb_array_length(payload), fetched_at
        FROM draft_snapshots
        ORDER BY fetched_at DESC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.FamilyID, &info.Rows, &info.FetchedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// PurgeBefore drops snapshots fetched before cutoff and reports how many.
func (r *SnapshotRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM draft_snapshots WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
