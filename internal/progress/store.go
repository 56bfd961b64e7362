// internal/progress/store.go
//
// SQLite-backed learner progress.
// Responsibilities:
//   - Save/Load one snapshot per owner (user id or anonymous learner id).
//   - ClaimAnon: move an anonymous learner's progress onto an account.
//
// Completed scene ids are stored as a JSON array; timestamps as RFC3339 text.

package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Load when the owner has no saved progress.
var ErrNotFound = errors.New("progress: not found")

// Snapshot is the persisted position of one learner.
type Snapshot struct {
	OwnerID           string    `json:"ownerId"`
	CurrentIndex      int       `json:"currentIndex"`
	CompletedSceneIDs []string  `json:"completedSceneIds"`
	Lang              string    `json:"lang,omitempty"`
	StartedAt         time.Time `json:"startedAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Save inserts or replaces the owner's snapshot. StartedAt of an existing row
// is kept.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if snap.OwnerID == "" {
		return errors.New("progress: empty owner")
	}
	now := time.Now().UTC()
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = now
	}
	if snap.StartedAt.IsZero() {
		snap.StartedAt = snap.UpdatedAt
	}
	completed, err := json.Marshal(nonNil(snap.CompletedSceneIDs))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (owner_id, current_index, completed, lang, started_at, updated_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(owner_id) DO UPDATE SET
			current_index = excluded.current_index,
			completed     = excluded.completed,
			lang          = excluded.lang,
			updated_at    = excluded.updated_at`,
		snap.OwnerID, snap.CurrentIndex, string(completed), snap.Lang,
		snap.StartedAt.UTC().Format(time.RFC3339), snap.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save progress %s: %w", snap.OwnerID, err)
	}
	return nil
}

// Load returns the owner's snapshot or ErrNotFound.
func (s *Store) Load(ctx context.Context, owner string) (Snapshot, error) {
	return load(ctx, s.db, owner)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func load(ctx context.Context, q queryer, owner string) (Snapshot, error) {
	var (
		snap             Snapshot
		completed        string
		started, updated string
	)
	err := q.QueryRowContext(ctx, `
		SELECT owner_id, current_index, completed, lang, started_at, updated_at
		FROM progress WHERE owner_id=?`, owner,
	).Scan(&snap.OwnerID, &snap.CurrentIndex, &completed, &snap.Lang, &started, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load progress %s: %w", owner, err)
	}
	if err := json.Unmarshal([]byte(completed), &snap.CompletedSceneIDs); err != nil {
		return Snapshot{}, fmt.Errorf("decode completed scenes: %w", err)
	}
	snap.StartedAt, _ = time.Parse(time.RFC3339, started)
	snap.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return snap, nil
}

// ClaimAnon attaches anonymous progress to userID after signup or login. When
// both exist the more recently updated one wins. The anonymous row is removed.
func (s *Store) ClaimAnon(ctx context.Context, anonID, userID string) error {
	if anonID == "" || userID == "" || anonID == userID {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	anon, err := load(ctx, tx, anonID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user, err := load(ctx, tx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case !anon.UpdatedAt.After(user.UpdatedAt):
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE owner_id=?`, anonID); err != nil {
			return err
		}
		return tx.Commit()
	default:
		anon.StartedAt = user.StartedAt
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE owner_id IN (?,?)`, anonID, userID); err != nil {
		return err
	}
	completed, err := json.Marshal(nonNil(anon.CompletedSceneIDs))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO progress (owner_id, current_index, completed, lang, started_at, updated_at)
		VALUES (?,?,?,?,?,?)`,
		userID, anon.CurrentIndex, string(completed), anon.Lang,
		anon.StartedAt.UTC().Format(time.RFC3339), anon.UpdatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("claim progress: %w", err)
	}
	return tx.Commit()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
