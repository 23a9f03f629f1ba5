package db

import "context"

// Operation is a single upsert statement queued into a store batch.
type Operation struct {
	SQL  string
	Args []any
}

// BatchExecer commits a group of operations to the store as one batch.
// A batch either commits as a unit or fails as a unit; batches already
// committed by a caller are never rolled back by a later failure.
type BatchExecer interface {
	CommitBatch(ctx context.Context, ops []Operation) error
}
