package models

import "time"

// Video is one tracked video under an account, carrying the last observed
// metric counts inlined for quick access. Metadata is merge-updated on every
// observation; the identifier and first_seen_at are never overwritten.
type Video struct {
	VideoID          string     `db:"video_id"`
	AccountHandle    string     `db:"account_handle"`
	Description      string     `db:"description"`
	CreateTime       *time.Time `db:"create_time"`
	ThumbnailURL     string     `db:"thumbnail_url"`
	VideoURL         string     `db:"video_url"`
	LastViewCount    int64      `db:"last_view_count"`
	LastLikeCount    int64      `db:"last_like_count"`
	LastCommentCount int64      `db:"last_comment_count"`
	LastRepostCount  int64      `db:"last_repost_count"`
	LastUpdated      time.Time  `db:"last_updated"`
	FirstSeenAt      time.Time  `db:"first_seen_at"`
}
