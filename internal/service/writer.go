// Package service implements the ingestion pipeline: the batched snapshot
// writer, the growth analyzer, and the single-flight cycle tracker.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/clock"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/models"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/repository"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/metrics"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/scraper"
)

// thumbnailFallback is the CDN pattern used when the scraper omits a
// thumbnail for a video.
const thumbnailFallback = "https://p16-sign.tiktokcdn.com/obj/tos-maliva-p-0068/%s.jpeg"

// WriteResult reports how much of a write landed. On a mid-stream batch
// failure the counts cover the batches that committed before the failure;
// those are never rolled back.
type WriteResult struct {
	VideosWritten int
	Batches       int
}

// SnapshotWriter turns raw video records into pairs of upsert operations
// (video merge-upsert, hourly snapshot replace-upsert) and commits them in
// bounded batches. Writes are idempotent: re-writing the same records for
// the same hour bucket replaces counts instead of duplicating rows.
type SnapshotWriter struct {
	batch     db.BatchExecer
	batchSize int
	logger    *zap.Logger
}

// NewSnapshotWriter creates a writer that commits at most batchSize records
// (two upsert operations each) per store batch.
func NewSnapshotWriter(batch db.BatchExecer, batchSize int, logger *zap.Logger) *SnapshotWriter {
	return &SnapshotWriter{
		batch:     batch,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Write persists one fetch's records for an account, bucketing snapshots by
// the calendar date and hour of observedAt in the home timezone. A record's
// two operations are always committed in the same batch. When a batch commit
// fails, earlier batches stay committed; the caller treats the result as
// "some data landed" and relies on the next cycle's re-fetch to complete it.
func (w *SnapshotWriter) Write(ctx context.Context, accountHandle string, records []scraper.RawVideo, observedAt time.Time) (WriteResult, error) {
	var result WriteResult
	if len(records) == 0 {
		return result, nil
	}

	dateKey := clock.DateKey(observedAt)
	hourKey := clock.HourKey(observedAt)

	ops := make([]db.Operation, 0, 2*w.batchSize)
	pending := 0

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := w.batch.CommitBatch(ctx, ops); err != nil {
			return err
		}
		metrics.BatchCommits.Inc()
		metrics.VideosWritten.Add(float64(pending))
		result.Batches++
		result.VideosWritten += pending
		ops = ops[:0]
		pending = 0
		return nil
	}

	for i := range records {
		record := &records[i]
		video := videoFromRecord(accountHandle, record, observedAt)
		snapshot := snapshotFromRecord(accountHandle, record, dateKey, hourKey, observedAt)

		ops = append(ops, repository.UpsertVideoOp(video), repository.UpsertSnapshotOp(snapshot))
		pending++

		if pending >= w.batchSize {
			if err := flush(); err != nil {
				return result, fmt.Errorf("write snapshots for %s: %w", accountHandle, err)
			}
		}
	}

	if err := flush(); err != nil {
		return result, fmt.Errorf("write snapshots for %s: %w", accountHandle, err)
	}

	w.logger.Info("snapshots written",
		zap.String("handle", accountHandle),
		zap.Int("videos", result.VideosWritten),
		zap.Int("batches", result.Batches),
		zap.String("date", dateKey),
		zap.String("hour", hourKey),
	)

	return result, nil
}

func videoFromRecord(accountHandle string, record *scraper.RawVideo, observedAt time.Time) *models.Video {
	thumbnail := record.Thumbnail
	if thumbnail == "" {
		thumbnail = fmt.Sprintf(thumbnailFallback, record.ID)
	}

	var createTime *time.Time
	if record.Timestamp > 0 {
		t := time.Unix(record.Timestamp, 0)
		createTime = &t
	}

	return &models.Video{
		VideoID:          record.ID,
		AccountHandle:    accountHandle,
		Description:      record.Description,
		CreateTime:       createTime,
		ThumbnailURL:     thumbnail,
		VideoURL:         record.WebpageURL,
		LastViewCount:    record.ViewCount,
		LastLikeCount:    record.LikeCount,
		LastCommentCount: record.CommentCount,
		LastRepostCount:  record.RepostCount,
		LastUpdated:      observedAt,
	}
}

func snapshotFromRecord(accountHandle string, record *scraper.RawVideo, dateKey, hourKey string, observedAt time.Time) *models.HourlySnapshot {
	return &models.HourlySnapshot{
		AccountHandle: accountHandle,
		VideoID:       record.ID,
		SnapshotDate:  dateKey,
		SnapshotHour:  hourKey,
		ViewCount:     record.ViewCount,
		LikeCount:     record.LikeCount,
		CommentCount:  record.CommentCount,
		RepostCount:   record.RepostCount,
		ObservedAt:    observedAt,
	}
}
