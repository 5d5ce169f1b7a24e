package phoneconfirm

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

// Confirmations is the bun backed ConfirmationStore
type Confirmations interface {
	ConfirmationStore

	CappedConfirmationStore

	InsertTx(ctx context.Context, tx bun.IDB, record *Confirmation) (uuid.UUID, error)
	DeleteAllByPhoneTx(ctx context.Context, tx bun.IDB, phoneNumber string) (int, error)
}

type confirmations struct {
	repo repository.Repository[*Confirmation]
	db   *bun.DB
}

var (
	_ Confirmations     = (*confirmations)(nil)
	_ ConfirmationStore       = (*confirmations)(nil)
	_ CappedConfirmationStore = (*confirmations)(nil)
)

// NewConfirmationsRepository creates the bun backed store
func NewConfirmationsRepository(db *bun.DB) Confirmations {
	repo := repository.NewRepository[*Confirmation](db, repository.ModelHandlers[*Confirmation]{
		NewRecord: func() *Confirmation { return &Confirmation{} },
		GetID: func(c *Confirmation) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Confirmation, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "activation_key"
		},
	})

	return &confirmations{
		repo: repo,
		db:   db,
	}
}

func (r *confirmations) Insert(ctx context.Context, record *Confirmation) (uuid.UUID, error) {
	return r.InsertTx(ctx, r.db, record)
}

func (r *confirmations) InsertTx(ctx context.Context, tx bun.IDB, record *Confirmation) (uuid.UUID, error) {
	if record == nil {
		return uuid.Nil, goerrors.New("confirmation record is required", goerrors.CategoryBadInput)
	}

	if record.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate confirmation id")
		}
		record.ID = id
	}

	exists, err := tx.NewSelect().
		Model((*Confirmation)(nil)).
		Where("id = ? OR activation_key = ?", record.ID, record.ActivationKey).
		Exists(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, ErrDuplicateConfirmation
	}

	created, err := r.repo.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateConfirmation
		}
		return uuid.Nil, err
	}

	return created.ID, nil
}

// InsertCapped inserts record and, when the phone then holds more than limit
// confirmations, deletes the oldest one. Both steps share one transaction.
func (r *confirmations) InsertCapped(ctx context.Context, record *Confirmation, limit int) (*Confirmation, int, error) {
	var (
		evicted *Confirmation
		count   int
	)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := r.InsertTx(ctx, tx, record); err != nil {
			return err
		}

		var err error
		count, err = r.countByPhone(ctx, tx, record.PhoneNumber)
		if err != nil {
			return err
		}
		if count <= limit {
			return nil
		}

		oldest := &Confirmation{}
		err = tx.NewSelect().
			Model(oldest).
			Where("?TableAlias.phone_number = ?", record.PhoneNumber).
			OrderExpr("?TableAlias.created_at ASC").
			OrderExpr("?TableAlias.id ASC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			return notFoundOr(err)
		}

		if err := r.delete(ctx, tx, oldest); err != nil {
			return err
		}
		evicted = oldest
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return evicted, count, nil
}

func (r *confirmations) CountByPhone(ctx context.Context, phoneNumber string) (int, error) {
	return r.countByPhone(ctx, r.db, phoneNumber)
}

func (r *confirmations) countByPhone(ctx context.Context, db bun.IDB, phoneNumber string) (int, error) {
	return db.NewSelect().
		Model((*Confirmation)(nil)).
		Where("?TableAlias.phone_number = ?", phoneNumber).
		Count(ctx)
}

func (r *confirmations) OldestByPhone(ctx context.Context, phoneNumber string) (*Confirmation, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectBy("phone_number", "=", phoneNumber),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.created_at ASC").OrderExpr("?TableAlias.id ASC")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if len(records) == 0 {
		return nil, ErrConfirmationNotFound
	}
	return records[0], nil
}

func (r *confirmations) Find(ctx context.Context, phoneNumber, code string, notOlderThan time.Time) (*Confirmation, error) {
	record := &Confirmation{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.created_at >= ?", notOlderThan.UTC()).
		Where("?TableAlias.phone_number = ?", phoneNumber).
		Where("?TableAlias.code = ?", code).
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return record, nil
}

func (r *confirmations) FindByID(ctx context.Context, id uuid.UUID) (*Confirmation, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, notFoundOr(err)
	}
	return record, nil
}

func (r *confirmations) Delete(ctx context.Context, record *Confirmation) error {
	return r.delete(ctx, r.db, record)
}

func (r *confirmations) delete(ctx context.Context, db bun.IDB, record *Confirmation) error {
	if record == nil {
		return nil
	}
	_, err := db.NewDelete().
		Model((*Confirmation)(nil)).
		Where("id = ?", record.ID).
		Exec(ctx)
	return err
}

func (r *confirmations) DeleteAllByPhone(ctx context.Context, phoneNumber string) (int, error) {
	return r.DeleteAllByPhoneTx(ctx, r.db, phoneNumber)
}

func (r *confirmations) DeleteAllByPhoneTx(ctx context.Context, tx bun.IDB, phoneNumber string) (int, error) {
	res, err := tx.NewDelete().
		Model((*Confirmation)(nil)).
		Where("phone_number = ?", phoneNumber).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return ErrConfirmationNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
