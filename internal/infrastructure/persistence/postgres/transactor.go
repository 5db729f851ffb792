package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mysterybag/impact-hub/internal/application/command"
	"github.com/mysterybag/impact-hub/pkg/timeutil"
)

var _ command.UnitOfWork = (*Transactor)(nil)

// Transactor implements command.UnitOfWork with one database transaction per
// call. A transaction-scoped advisory lock on the user id serializes work
// for the same user and leaves other users untouched.
type Transactor struct {
	conn *Connection
	cal  timeutil.Calendar
}

// NewTransactor creates a new Transactor.
func NewTransactor(conn *Connection, cal timeutil.Calendar) *Transactor {
	return &Transactor{conn: conn, cal: cal}
}

// WithinTx implements command.UnitOfWork.
func (t *Transactor) WithinTx(ctx context.Context, userID string, fn func(ctx context.Context, s command.Stores) error) error {
	return t.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userID); err != nil {
			return storageError("postgres", "WithinTx", err)
		}

		return fn(ctx, command.Stores{
			Progress:   NewProgressRepository(tx),
			Challenges: NewChallengeRepository(tx, t.cal),
			Awards:     NewAwardRepository(tx),
			Activity:   NewActivityRepository(tx),
		})
	})
}
