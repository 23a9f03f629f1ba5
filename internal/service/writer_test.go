package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/scraper"
)

// fakeBatchExecer records every committed batch and can fail a chosen commit.
type fakeBatchExecer struct {
	batches    [][]db.Operation
	failCommit int // 1-based index of the commit to fail; 0 = never
	commitErr  error
}

func (f *fakeBatchExecer) CommitBatch(_ context.Context, ops []db.Operation) error {
	if f.failCommit > 0 && len(f.batches)+1 == f.failCommit {
		return f.commitErr
	}
	copied := make([]db.Operation, len(ops))
	copy(copied, ops)
	f.batches = append(f.batches, copied)
	return nil
}

func makeRecords(n int) []scraper.RawVideo {
	records := make([]scraper.RawVideo, n)
	for i := range records {
		records[i] = scraper.RawVideo{
			ID:        fmt.Sprintf("v%04d", i),
			ViewCount: int64(i * 10),
		}
	}
	return records
}

var writeObservedAt = time.Date(2026, 8, 30, 14, 5, 0, 0, time.FixedZone("+07", 7*3600))

func TestWrite_SplitsIntoBoundedBatches(t *testing.T) {
	t.Parallel()

	fake := &fakeBatchExecer{}
	w := NewSnapshotWriter(fake, 400, zap.NewNop())

	result, err := w.Write(context.Background(), "creator_one", makeRecords(1000), writeObservedAt)
	require.NoError(t, err)

	assert.Equal(t, 1000, result.VideosWritten)
	assert.Equal(t, 3, result.Batches)

	require.Len(t, fake.batches, 3)
	assert.Len(t, fake.batches[0], 800)
	assert.Len(t, fake.batches[1], 800)
	assert.Len(t, fake.batches[2], 400)
}

func TestWrite_RecordPairsStayInOneBatch(t *testing.T) {
	t.Parallel()

	fake := &fakeBatchExecer{}
	w := NewSnapshotWriter(fake, 3, zap.NewNop())

	_, err := w.Write(context.Background(), "creator_one", makeRecords(7), writeObservedAt)
	require.NoError(t, err)

	for _, batch := range fake.batches {
		require.Zero(t, len(batch)%2, "a video op and its snapshot op must land together")

		for i := 0; i < len(batch); i += 2 {
			videoOp, snapOp := batch[i], batch[i+1]
			assert.Contains(t, videoOp.SQL, "INSERT INTO videos")
			assert.Contains(t, snapOp.SQL, "INSERT INTO hourly_snapshots")
			// Args[1] is the video id in both statements.
			assert.Equal(t, videoOp.Args[1], snapOp.Args[1])
		}
	}
}

func TestWrite_PartialFailureKeepsCommittedBatches(t *testing.T) {
	t.Parallel()

	commitErr := errors.New("connection reset")
	fake := &fakeBatchExecer{failCommit: 2, commitErr: commitErr}
	w := NewSnapshotWriter(fake, 400, zap.NewNop())

	result, err := w.Write(context.Background(), "creator_one", makeRecords(1000), writeObservedAt)
	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)

	// The first batch committed before the failure and stays committed.
	assert.Equal(t, 400, result.VideosWritten)
	assert.Equal(t, 1, result.Batches)
	assert.Len(t, fake.batches, 1)
}

func TestWrite_EmptyRecords(t *testing.T) {
	t.Parallel()

	fake := &fakeBatchExecer{}
	w := NewSnapshotWriter(fake, 400, zap.NewNop())

	result, err := w.Write(context.Background(), "creator_one", nil, writeObservedAt)
	require.NoError(t, err)
	assert.Zero(t, result.VideosWritten)
	assert.Zero(t, result.Batches)
	assert.Empty(t, fake.batches)
}

func TestWrite_BucketKeysFromObservedAt(t *testing.T) {
	t.Parallel()

	fake := &fakeBatchExecer{}
	w := NewSnapshotWriter(fake, 10, zap.NewNop())

	_, err := w.Write(context.Background(), "creator_one", makeRecords(1), writeObservedAt)
	require.NoError(t, err)

	require.Len(t, fake.batches, 1)
	snapOp := fake.batches[0][1]
	assert.Equal(t, "2026-08-30", snapOp.Args[2])
	assert.Equal(t, "14", snapOp.Args[3])
}

func TestVideoFromRecord_ThumbnailFallback(t *testing.T) {
	t.Parallel()

	record := &scraper.RawVideo{ID: "v1", ViewCount: 5}

	video := videoFromRecord("creator_one", record, writeObservedAt)
	assert.True(t, strings.HasPrefix(video.ThumbnailURL, "https://p16-sign.tiktokcdn.com/"))
	assert.Contains(t, video.ThumbnailURL, "v1")
	assert.Nil(t, video.CreateTime)

	record.Thumbnail = "https://example.com/thumb.jpg"
	record.Timestamp = writeObservedAt.Unix()

	video = videoFromRecord("creator_one", record, writeObservedAt)
	assert.Equal(t, "https://example.com/thumb.jpg", video.ThumbnailURL)
	require.NotNil(t, video.CreateTime)
	assert.Equal(t, writeObservedAt.Unix(), video.CreateTime.Unix())
}
