package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/models"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/repository"
)

// GrowthRecord is a transient read-time projection: one video's view-count
// delta between its two most recent hourly snapshots of the day. It is
// never persisted.
type GrowthRecord struct {
	VideoID string `json:"video_id"`
	Delta   int64  `json:"delta"`
}

// GrowthAnalyzer ranks an account's videos by short-horizon view growth.
type GrowthAnalyzer struct {
	snapshots repository.SnapshotRepository
}

// NewGrowthAnalyzer creates a GrowthAnalyzer reading from the given repository.
func NewGrowthAnalyzer(snapshots repository.SnapshotRepository) *GrowthAnalyzer {
	return &GrowthAnalyzer{snapshots: snapshots}
}

// TopGrowth diffs the two most recent snapshots of dateKey for every video
// under the account. Videos with fewer than two snapshots that day are
// excluded. The delta spans whatever gap separates the two buckets; it is
// not normalized to a fixed duration. Results are sorted descending by
// delta with ties keeping the videos' first-seen order, truncated to limit.
func (a *GrowthAnalyzer) TopGrowth(ctx context.Context, accountHandle, dateKey string, limit int) ([]GrowthRecord, error) {
	rows, err := a.snapshots.LatestTwoForDate(ctx, accountHandle, dateKey)
	if err != nil {
		return nil, fmt.Errorf("top growth for %s: %w", accountHandle, err)
	}

	growth := diffLatestPairs(rows)

	sort.SliceStable(growth, func(i, j int) bool {
		return growth[i].Delta > growth[j].Delta
	})

	if limit > 0 && len(growth) > limit {
		growth = growth[:limit]
	}

	return growth, nil
}

// diffLatestPairs walks rows grouped per video (newest first within each
// group) and emits latest minus previous for every video with two snapshots.
func diffLatestPairs(rows []*models.HourlySnapshot) []GrowthRecord {
	var growth []GrowthRecord

	for i := 0; i < len(rows); {
		latest := rows[i]
		if i+1 < len(rows) && rows[i+1].VideoID == latest.VideoID {
			previous := rows[i+1]
			growth = append(growth, GrowthRecord{
				VideoID: latest.VideoID,
				Delta:   latest.ViewCount - previous.ViewCount,
			})
			i += 2
			continue
		}
		// Single snapshot today: not enough data to diff.
		i++
	}

	return growth
}
