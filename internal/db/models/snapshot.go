package models

import "time"

// HourlySnapshot is one point-in-time measurement of a video's metrics,
// keyed by (video, calendar date, hour-of-day) in the platform's home
// timezone. At most one snapshot exists per bucket; a re-scrape within the
// same hour replaces the bucket's counts.
type HourlySnapshot struct {
	AccountHandle string    `db:"account_handle"`
	VideoID       string    `db:"video_id"`
	SnapshotDate  string    `db:"snapshot_date"`
	SnapshotHour  string    `db:"snapshot_hour"`
	ViewCount     int64     `db:"view_count"`
	LikeCount     int64     `db:"like_count"`
	CommentCount  int64     `db:"comment_count"`
	RepostCount   int64     `db:"repost_count"`
	ObservedAt    time.Time `db:"observed_at"`
}
