package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/temporal"
)

var versionColumns = []string{
	"id", "business_from", "business_thru", "processing_from", "processing_thru", "payload",
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func versionsOf(entity string) sq.SelectBuilder {
	return sq.Select(versionColumns...).From("versions").Where(sq.Eq{"entity": entity})
}

func edgeQuery(entity string, id int64) sq.SelectBuilder {
	return versionsOf(entity).
		Where(sq.Eq{"id": id, "processing_thru": encodeTime(temporal.Infinity)}).
		OrderBy("business_from ASC")
}

// Edge returns the processing edge points of one id ordered by business_from.
// Together they partition the id's currently believed business history.
//
// Returns an empty slice (not nil) if the id has no open rows.
func (s *Store) Edge(ctx context.Context, entity string, id int64) ([]temporal.Version, error) {
	vs, err := selectVersions(ctx, s.db, edgeQuery(entity, id))
	if err != nil {
		return nil, errors.Wrapf(err, "edge %s %d", entity, id)
	}
	return vs, nil
}

// History returns every version ever recorded for one id, ordered by
// processing_from then business_from. Terminated rows are included.
func (s *Store) History(ctx context.Context, entity string, id int64) ([]temporal.Version, error) {
	b := versionsOf(entity).
		Where(sq.Eq{"id": id}).
		OrderBy("processing_from ASC", "business_from ASC")

	vs, err := selectVersions(ctx, s.db, b)
	if err != nil {
		return nil, errors.Wrapf(err, "history %s %d", entity, id)
	}
	return vs, nil
}

// AsOf returns the versions whose business interval contains businessAt and
// whose processing interval contains processingAt. A nil id selects every id
// of the entity. processingAt is normalized with temporal.Current: zero or
// Infinity matches the processing edge point.
//
// Results are ordered by id.
func (s *Store) AsOf(ctx context.Context, entity string, id *int64, businessAt, processingAt time.Time) ([]temporal.Version, error) {
	b := versionsOf(entity).Where(sq.And{
		sq.LtOrEq{"business_from": encodeTime(businessAt)},
		sq.Gt{"business_thru": encodeTime(businessAt)},
	})

	if temporal.Current(processingAt) {
		b = b.Where(sq.Eq{"processing_thru": encodeTime(temporal.Infinity)})
	} else {
		b = b.Where(sq.And{
			sq.LtOrEq{"processing_from": encodeTime(processingAt)},
			sq.Gt{"processing_thru": encodeTime(processingAt)},
		})
	}

	if id != nil {
		b = b.Where(sq.Eq{"id": *id})
	}
	b = b.OrderBy("id ASC", "business_from ASC")

	vs, err := selectVersions(ctx, s.db, b)
	if err != nil {
		return nil, errors.Wrapf(err, "as-of %s", entity)
	}
	return vs, nil
}

// All is AsOf across every id of the entity.
func (s *Store) All(ctx context.Context, entity string, businessAt, processingAt time.Time) ([]temporal.Version, error) {
	return s.AsOf(ctx, entity, nil, businessAt, processingAt)
}

// Count returns the number of distinct ids ever recorded for the entity.
func (s *Store) Count(ctx context.Context, entity string) (int64, error) {
	query, args, err := sq.Select("COUNT(DISTINCT id)").
		From("versions").
		Where(sq.Eq{"entity": entity}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build count")
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count %s", entity)
	}
	return n, nil
}

// Entities returns the names of all entities with at least one version.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("DISTINCT entity").From("versions").OrderBy("entity ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build entities")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query entities")
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan entity")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "iterate entities")
}

func selectVersions(ctx context.Context, db queryer, b sq.SelectBuilder) ([]temporal.Version, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build select")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query versions")
	}
	defer rows.Close()

	versions := []temporal.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate versions")
	}
	return versions, nil
}
