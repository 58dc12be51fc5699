package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
)

// SequenceBackend persists named id counters in the sequences table.
// Implements sequence.Backend.
type SequenceBackend struct {
	store *Store
}

// Sequences returns the SQLite-backed counter registry for this store.
func (s *Store) Sequences() *SequenceBackend {
	return &SequenceBackend{store: s}
}

// Reserve hands out count values spaced by increment and returns the first.
// A sequence seen for the first time starts at start. The read and the
// advance run in one transaction.
func (b *SequenceBackend) Reserve(ctx context.Context, name string, count, start, increment int64) (int64, error) {
	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "reserve %s: begin tx", name)
	}
	defer tx.Rollback() // No-op if committed

	query, args, err := sq.Select("next_value").From("sequences").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build reserve")
	}

	first := start
	switch err := tx.QueryRowContext(ctx, query, args...).Scan(&first); {
	case errors.Is(err, sql.ErrNoRows):
		first = start
	case err != nil:
		return 0, errors.Wrapf(err, "reserve %s: read", name)
	}

	if err := upsertSequence(ctx, tx, name, first+count*increment); err != nil {
		return 0, errors.Wrapf(err, "reserve %s", name)
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrapf(err, "reserve %s: commit", name)
	}
	return first, nil
}

// Reset makes next the value handed out by the next reservation.
func (b *SequenceBackend) Reset(ctx context.Context, name string, next int64) error {
	if err := upsertSequence(ctx, b.store.db, name, next); err != nil {
		return errors.Wrapf(err, "reset %s", name)
	}
	return nil
}

// Clear forgets every counter; each restarts at its start value.
func (b *SequenceBackend) Clear(ctx context.Context) error {
	query, args, err := sq.Delete("sequences").ToSql()
	if err != nil {
		return errors.Wrap(err, "build clear")
	}
	if _, err := b.store.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "clear sequences")
	}
	return nil
}

func upsertSequence(ctx context.Context, db execer, name string, next int64) error {
	query, args, err := sq.Insert("sequences").
		Columns("name", "next_value").
		Values(name, next).
		Suffix("ON CONFLICT(name) DO UPDATE SET next_value = excluded.next_value").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build upsert")
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "upsert sequence")
	}
	return nil
}
