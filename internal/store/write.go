package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/tempora/internal/temporal"
)

// PlanFunc turns the current processing edge points of one id into the
// transition to apply. It runs inside the Apply transaction.
type PlanFunc func(edge []temporal.Version) (temporal.Transition, error)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert writes a single new version. The version must satisfy From < Thru
// on both axes; a row with the same (entity, id, business_from,
// processing_from) key is a conflict and returns the driver error.
func (s *Store) Insert(ctx context.Context, entity string, v temporal.Version) error {
	if err := v.Validate(); err != nil {
		return errors.Wrapf(err, "insert %s", entity)
	}
	if err := insertVersion(ctx, s.db, entity, v, s.txIDs.Generate()); err != nil {
		return errors.Wrapf(err, "insert %s %d", entity, v.ID)
	}
	s.log.Debug("version inserted",
		zap.String("entity", entity),
		zap.Int64("id", v.ID),
		zap.Stringer("business", v.Business),
	)
	return nil
}

// Apply runs the bitemporal chain for one id as a single transaction:
// load the processing edge points, ask plan for a transition, close the
// terminated rows and insert the new ones. Any failure rolls back every
// step, so concurrent updates of the same id cannot lose or duplicate a
// write.
//
// Returns the applied transition.
func (s *Store) Apply(ctx context.Context, entity string, id int64, plan PlanFunc) (temporal.Transition, error) {
	trs, err := s.ApplyAll(ctx, entity, []int64{id}, func(_ int64, edge []temporal.Version) (temporal.Transition, error) {
		return plan(edge)
	})
	if err != nil {
		return temporal.Transition{}, err
	}
	return trs[0], nil
}

// BatchPlanFunc is PlanFunc for one id out of a batch.
type BatchPlanFunc func(id int64, edge []temporal.Version) (temporal.Transition, error)

// ApplyAll runs plan for every id inside one transaction, in order. A plan
// that returns an empty transition leaves its id untouched. Any failure
// rolls back the whole batch.
//
// Returns the applied transitions, one per id.
func (s *Store) ApplyAll(ctx context.Context, entity string, ids []int64, plan BatchPlanFunc) ([]temporal.Transition, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "apply %s: begin tx", entity)
	}
	defer tx.Rollback() // No-op if committed

	txID := s.txIDs.Generate()
	trs := make([]temporal.Transition, 0, len(ids))
	for _, id := range ids {
		tr, err := applyOne(ctx, tx, entity, id, txID, plan)
		if err != nil {
			return nil, err
		}
		trs = append(trs, tr)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrapf(err, "apply %s: commit", entity)
	}

	for i, tr := range trs {
		if len(tr.Terminated) == 0 && len(tr.Inserted) == 0 {
			continue
		}
		s.log.Debug("version chain applied",
			zap.String("entity", entity),
			zap.Int64("id", ids[i]),
			zap.Int("terminated", len(tr.Terminated)),
			zap.Int("inserted", len(tr.Inserted)),
			zap.String("tx_id", txID),
		)
	}
	return trs, nil
}

func applyOne(ctx context.Context, tx *sql.Tx, entity string, id int64, txID string, plan BatchPlanFunc) (temporal.Transition, error) {
	edge, err := selectVersions(ctx, tx, edgeQuery(entity, id))
	if err != nil {
		return temporal.Transition{}, errors.Wrapf(err, "apply %s %d: load edge", entity, id)
	}

	tr, err := plan(id, edge)
	if err != nil {
		return temporal.Transition{}, err
	}

	for _, v := range tr.Terminated {
		if err := terminateVersion(ctx, tx, entity, v); err != nil {
			return temporal.Transition{}, errors.Wrapf(err, "apply %s %d", entity, id)
		}
	}
	for _, v := range tr.Inserted {
		if err := v.Validate(); err != nil {
			return temporal.Transition{}, errors.Wrapf(err, "apply %s %d", entity, id)
		}
		if err := insertVersion(ctx, tx, entity, v, txID); err != nil {
			return temporal.Transition{}, errors.Wrapf(err, "apply %s %d", entity, id)
		}
	}
	return tr, nil
}

func insertVersion(ctx context.Context, db execer, entity string, v temporal.Version, txID string) error {
	payload, err := marshalPayload(v.Payload)
	if err != nil {
		return err
	}

	query, args, err := sq.Insert("versions").
		Columns("entity", "id", "business_from", "business_thru",
			"processing_from", "processing_thru", "payload", "tx_id").
		Values(entity, v.ID,
			encodeTime(v.Business.From), encodeTime(v.Business.Thru),
			encodeTime(v.Processing.From), encodeTime(v.Processing.Thru),
			payload, txID).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build insert")
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "insert version")
	}
	return nil
}

// terminateVersion closes the processing interval of a row that is still a
// processing edge point. A row that is no longer open is a lost update.
func terminateVersion(ctx context.Context, db execer, entity string, v temporal.Version) error {
	query, args, err := sq.Update("versions").
		Set("processing_thru", encodeTime(v.Processing.Thru)).
		Where(sq.Eq{
			"entity":          entity,
			"id":              v.ID,
			"business_from":   encodeTime(v.Business.From),
			"processing_from": encodeTime(v.Processing.From),
			"processing_thru": encodeTime(temporal.Infinity),
		}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build terminate")
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "terminate version")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "terminate version: rows affected")
	}
	if n != 1 {
		return errors.Newf("terminate version: expected 1 open row for business_from %s, got %d",
			encodeTime(v.Business.From), n)
	}
	return nil
}
