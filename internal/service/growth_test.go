package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/models"
)

// fakeSnapshotRepo serves canned LatestTwoForDate rows.
type fakeSnapshotRepo struct {
	rows []*models.HourlySnapshot
	err  error

	handle  string
	dateKey string
}

func (f *fakeSnapshotRepo) LatestTwoForDate(_ context.Context, accountHandle, dateKey string) ([]*models.HourlySnapshot, error) {
	f.handle = accountHandle
	f.dateKey = dateKey
	return f.rows, f.err
}

func (f *fakeSnapshotRepo) GetSnapshot(context.Context, string, string, string, string) (*models.HourlySnapshot, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeSnapshotRepo) CountSnapshots(context.Context, string, string, string) (int, error) {
	return 0, errors.New("not implemented")
}

func snapRow(videoID, hourKey string, views int64) *models.HourlySnapshot {
	observed, _ := time.Parse("2006-01-02 15", "2026-08-30 "+hourKey)
	return &models.HourlySnapshot{
		AccountHandle: "creator_one",
		VideoID:       videoID,
		SnapshotDate:  "2026-08-30",
		SnapshotHour:  hourKey,
		ViewCount:     views,
		ObservedAt:    observed,
	}
}

func TestTopGrowth_RanksByDelta(t *testing.T) {
	t.Parallel()

	// Rows arrive grouped per video, newest bucket first within each group.
	repo := &fakeSnapshotRepo{rows: []*models.HourlySnapshot{
		snapRow("v1", "14", 150),
		snapRow("v1", "13", 100),
		snapRow("v2", "14", 190),
		snapRow("v2", "13", 200),
		snapRow("v3", "14", 999), // single bucket today, excluded
	}}

	a := NewGrowthAnalyzer(repo)

	growth, err := a.TopGrowth(context.Background(), "creator_one", "2026-08-30", 10)
	require.NoError(t, err)

	require.Len(t, growth, 2)
	assert.Equal(t, GrowthRecord{VideoID: "v1", Delta: 50}, growth[0])
	assert.Equal(t, GrowthRecord{VideoID: "v2", Delta: -10}, growth[1])

	assert.Equal(t, "creator_one", repo.handle)
	assert.Equal(t, "2026-08-30", repo.dateKey)
}

func TestTopGrowth_LimitTruncates(t *testing.T) {
	t.Parallel()

	repo := &fakeSnapshotRepo{rows: []*models.HourlySnapshot{
		snapRow("v1", "14", 110),
		snapRow("v1", "13", 100),
		snapRow("v2", "14", 130),
		snapRow("v2", "13", 100),
		snapRow("v3", "14", 120),
		snapRow("v3", "13", 100),
	}}

	a := NewGrowthAnalyzer(repo)

	growth, err := a.TopGrowth(context.Background(), "creator_one", "2026-08-30", 2)
	require.NoError(t, err)

	require.Len(t, growth, 2)
	assert.Equal(t, "v2", growth[0].VideoID)
	assert.Equal(t, "v3", growth[1].VideoID)
}

func TestTopGrowth_TiesKeepFirstSeenOrder(t *testing.T) {
	t.Parallel()

	repo := &fakeSnapshotRepo{rows: []*models.HourlySnapshot{
		snapRow("v1", "14", 110),
		snapRow("v1", "13", 100),
		snapRow("v2", "14", 210),
		snapRow("v2", "13", 200),
	}}

	a := NewGrowthAnalyzer(repo)

	growth, err := a.TopGrowth(context.Background(), "creator_one", "2026-08-30", 10)
	require.NoError(t, err)

	require.Len(t, growth, 2)
	assert.Equal(t, "v1", growth[0].VideoID)
	assert.Equal(t, "v2", growth[1].VideoID)
}

func TestTopGrowth_StoreError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	repo := &fakeSnapshotRepo{err: storeErr}

	a := NewGrowthAnalyzer(repo)

	growth, err := a.TopGrowth(context.Background(), "creator_one", "2026-08-30", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Nil(t, growth)
}

func TestTopGrowth_NoSnapshots(t *testing.T) {
	t.Parallel()

	a := NewGrowthAnalyzer(&fakeSnapshotRepo{})

	growth, err := a.TopGrowth(context.Background(), "creator_one", "2026-08-30", 10)
	require.NoError(t, err)
	assert.Empty(t, growth)
}
