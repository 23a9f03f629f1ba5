package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/models"
)

// SnapshotRepository defines read operations for hourly snapshots.
type SnapshotRepository interface {
	// LatestTwoForDate returns, for every video under the account, up to its
	// two most recent snapshots for the given date key. Rows are grouped per
	// video in the account's first-seen order, newest snapshot first within
	// each video.
	LatestTwoForDate(ctx context.Context, accountHandle, dateKey string) ([]*models.HourlySnapshot, error)

	// GetSnapshot retrieves one snapshot bucket.
	GetSnapshot(ctx context.Context, accountHandle, videoID, dateKey, hourKey string) (*models.HourlySnapshot, error)

	// CountSnapshots returns the number of snapshot buckets stored for a
	// video on the given date.
	CountSnapshots(ctx context.Context, accountHandle, videoID, dateKey string) (int, error)
}

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

// UpsertSnapshotOp builds the replace-upsert for one hourly bucket. A second
// write into the same (video, date, hour) bucket overwrites the counts and
// observation timestamp rather than creating a new row.
func UpsertSnapshotOp(s *models.HourlySnapshot) db.Operation {
	return db.Operation{
		SQL: `
			INSERT INTO hourly_snapshots (account_handle, video_id, snapshot_date, snapshot_hour,
				view_count, like_count, comment_count, repost_count, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (account_handle, video_id, snapshot_date, snapshot_hour) DO UPDATE
			SET view_count    = EXCLUDED.view_count,
			    like_count    = EXCLUDED.like_count,
			    comment_count = EXCLUDED.comment_count,
			    repost_count  = EXCLUDED.repost_count,
			    observed_at   = EXCLUDED.observed_at
		`,
		Args: []any{
			s.AccountHandle,
			s.VideoID,
			s.SnapshotDate,
			s.SnapshotHour,
			s.ViewCount,
			s.LikeCount,
			s.CommentCount,
			s.RepostCount,
			s.ObservedAt,
		},
	}
}

func (r *snapshotRepository) LatestTwoForDate(ctx context.Context, accountHandle, dateKey string) ([]*models.HourlySnapshot, error) {
	query := `
		SELECT s.account_handle, s.video_id, s.snapshot_date, s.snapshot_hour,
		       s.view_count, s.like_count, s.comment_count, s.repost_count, s.observed_at
		FROM (
			SELECT hs.*,
			       ROW_NUMBER() OVER (PARTITION BY hs.video_id ORDER BY hs.observed_at DESC) AS rn
			FROM hourly_snapshots hs
			WHERE hs.account_handle = $1 AND hs.snapshot_date = $2
		) s
		JOIN videos v ON v.account_handle = s.account_handle AND v.video_id = s.video_id
		WHERE s.rn <= 2
		ORDER BY v.first_seen_at, s.video_id, s.observed_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountHandle, dateKey)
	if err != nil {
		return nil, db.WrapError(err, "latest two snapshots for date")
	}
	defer rows.Close()

	var snapshots []*models.HourlySnapshot
	for rows.Next() {
		snap := &models.HourlySnapshot{}
		err := rows.Scan(
			&snap.AccountHandle,
			&snap.VideoID,
			&snap.SnapshotDate,
			&snap.SnapshotHour,
			&snap.ViewCount,
			&snap.LikeCount,
			&snap.CommentCount,
			&snap.RepostCount,
			&snap.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snapshots, nil
}

func (r *snapshotRepository) GetSnapshot(ctx context.Context, accountHandle, videoID, dateKey, hourKey string) (*models.HourlySnapshot, error) {
	query := `
		SELECT account_handle, video_id, snapshot_date, snapshot_hour,
		       view_count, like_count, comment_count, repost_count, observed_at
		FROM hourly_snapshots
		WHERE account_handle = $1 AND video_id = $2 AND snapshot_date = $3 AND snapshot_hour = $4
	`

	snap := &models.HourlySnapshot{}
	err := r.pool.QueryRow(ctx, query, accountHandle, videoID, dateKey, hourKey).Scan(
		&snap.AccountHandle,
		&snap.VideoID,
		&snap.SnapshotDate,
		&snap.SnapshotHour,
		&snap.ViewCount,
		&snap.LikeCount,
		&snap.CommentCount,
		&snap.RepostCount,
		&snap.ObservedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get snapshot")
	}

	return snap, nil
}

func (r *snapshotRepository) CountSnapshots(ctx context.Context, accountHandle, videoID, dateKey string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM hourly_snapshots
		WHERE account_handle = $1 AND video_id = $2 AND snapshot_date = $3
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, accountHandle, videoID, dateKey).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count snapshots")
	}

	return count, nil
}
