package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/models"
)

// VideoRepository defines read operations for tracked videos. Writes go
// through batched upsert operations, see UpsertVideoOp.
type VideoRepository interface {
	// GetVideo retrieves a single video by account and id.
	GetVideo(ctx context.Context, accountHandle, videoID string) (*models.Video, error)

	// ListVideosByAccount retrieves videos for an account in first-seen order.
	ListVideosByAccount(ctx context.Context, accountHandle string, limit int) ([]*models.Video, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

const videoColumns = `video_id, account_handle, description, create_time, thumbnail_url, video_url,
	last_view_count, last_like_count, last_comment_count, last_repost_count, last_updated, first_seen_at`

// UpsertVideoOp builds the merge-upsert for a video's metadata and last
// observed counts. Fields absent from the new observation (empty strings,
// nil create time) never clobber values written by an earlier richer fetch.
// first_seen_at is set once and never overwritten.
func UpsertVideoOp(v *models.Video) db.Operation {
	return db.Operation{
		SQL: `
			INSERT INTO videos (account_handle, video_id, description, create_time, thumbnail_url, video_url,
				last_view_count, last_like_count, last_comment_count, last_repost_count, last_updated, first_seen_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
			ON CONFLICT (account_handle, video_id) DO UPDATE
			SET description        = COALESCE(NULLIF(EXCLUDED.description, ''), videos.description),
			    create_time        = COALESCE(EXCLUDED.create_time, videos.create_time),
			    thumbnail_url      = COALESCE(NULLIF(EXCLUDED.thumbnail_url, ''), videos.thumbnail_url),
			    video_url          = COALESCE(NULLIF(EXCLUDED.video_url, ''), videos.video_url),
			    last_view_count    = EXCLUDED.last_view_count,
			    last_like_count    = EXCLUDED.last_like_count,
			    last_comment_count = EXCLUDED.last_comment_count,
			    last_repost_count  = EXCLUDED.last_repost_count,
			    last_updated       = EXCLUDED.last_updated
		`,
		Args: []any{
			v.AccountHandle,
			v.VideoID,
			v.Description,
			v.CreateTime,
			v.ThumbnailURL,
			v.VideoURL,
			v.LastViewCount,
			v.LastLikeCount,
			v.LastCommentCount,
			v.LastRepostCount,
			v.LastUpdated,
		},
	}
}

func (r *videoRepository) GetVideo(ctx context.Context, accountHandle, videoID string) (*models.Video, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM videos
		WHERE account_handle = $1 AND video_id = $2
	`, videoColumns)

	video := &models.Video{}
	err := r.pool.QueryRow(ctx, query, accountHandle, videoID).Scan(
		&video.VideoID,
		&video.AccountHandle,
		&video.Description,
		&video.CreateTime,
		&video.ThumbnailURL,
		&video.VideoURL,
		&video.LastViewCount,
		&video.LastLikeCount,
		&video.LastCommentCount,
		&video.LastRepostCount,
		&video.LastUpdated,
		&video.FirstSeenAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get video")
	}

	return video, nil
}

func (r *videoRepository) ListVideosByAccount(ctx context.Context, accountHandle string, limit int) ([]*models.Video, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM videos
		WHERE account_handle = $1
		ORDER BY first_seen_at, video_id
		LIMIT $2
	`, videoColumns)

	rows, err := r.pool.Query(ctx, query, accountHandle, limit)
	if err != nil {
		return nil, db.WrapError(err, "list videos by account")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video := &models.Video{}
		err := rows.Scan(
			&video.VideoID,
			&video.AccountHandle,
			&video.Description,
			&video.CreateTime,
			&video.ThumbnailURL,
			&video.VideoURL,
			&video.LastViewCount,
			&video.LastLikeCount,
			&video.LastCommentCount,
			&video.LastRepostCount,
			&video.LastUpdated,
			&video.FirstSeenAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}
