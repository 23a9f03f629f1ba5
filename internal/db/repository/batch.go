package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
)

// BatchCommitter sends accumulated upsert operations to PostgreSQL as a
// single pipelined batch. Statements within one batch execute in queue
// order, so a video upsert queued before its snapshot upsert always lands
// first.
type BatchCommitter struct {
	pool *pgxpool.Pool
}

// NewBatchCommitter creates a BatchCommitter backed by the given pool.
func NewBatchCommitter(pool *pgxpool.Pool) *BatchCommitter {
	return &BatchCommitter{pool: pool}
}

var _ db.BatchExecer = (*BatchCommitter)(nil)

// CommitBatch executes all operations in one batch round trip.
func (c *BatchCommitter) CommitBatch(ctx context.Context, ops []db.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(op.SQL, op.Args...)
	}

	results := c.pool.SendBatch(ctx, batch)
	for range ops {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return db.WrapError(err, "commit batch")
		}
	}

	if err := results.Close(); err != nil {
		return db.WrapError(err, "close batch")
	}

	return nil
}
