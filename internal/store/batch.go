package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// batchOp is one staged write. The first stamps placeholders of query
// receive the commit timestamp, followed by args.
type batchOp struct {
	query  string
	stamps int
	args   []any
}

// Batch stages field updates and applies them in a single transaction.
// A Batch is not safe for concurrent use.
type Batch struct {
	db  *sql.DB
	now func() time.Time
	ops []batchOp
}

// NewBatch returns an empty write batch. Timestamps staged into the batch are
// assigned at commit time.
func NewBatch(db *sql.DB) *Batch {
	return &Batch{db: db, now: time.Now}
}

// MarkInviteSent stages the master-invite flag update for a guest.
func (b *Batch) MarkInviteSent(guestID string) {
	b.ops = append(b.ops, batchOp{
		query:  `UPDATE guests SET master_invite_sent = 1, master_invite_sent_at = ?, updated_at = ? WHERE id = ?`,
		stamps: 2,
		args:   []any{guestID},
	})
}

// Len returns the number of staged writes.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Commit applies every staged write atomically. Committing an empty batch is
// a no-op.
func (b *Batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	now := b.now().UTC()
	for _, op := range b.ops {
		args := make([]any, 0, op.stamps+len(op.args))
		for i := 0; i < op.stamps; i++ {
			args = append(args, now)
		}
		args = append(args, op.args...)
		if _, err := tx.ExecContext(ctx, op.query, args...); err != nil {
			return fmt.Errorf("batch write: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.ops = nil
	return nil
}
