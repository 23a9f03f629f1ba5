package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/config"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/metrics"
)

// RawVideo is one video record as emitted by yt-dlp, one JSON object per
// stdout line. Missing numeric fields decode to zero, missing metadata to
// empty strings.
type RawVideo struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Timestamp    int64  `json:"timestamp"`
	Thumbnail    string `json:"thumbnail"`
	WebpageURL   string `json:"webpage_url"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	RepostCount  int64  `json:"repost_count"`
}

// ErrEmptyOutput marks an attempt that produced no output lines at all.
var ErrEmptyOutput = errors.New("scraper produced no output")

// FetchError is returned after every attempt for an account has failed.
// It never propagates as a panic; callers log it and skip the account for
// the current cycle.
type FetchError struct {
	Handle   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.Handle, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher wraps an ExternalFetcher with a bounded retry policy and per-line
// parse-or-discard handling.
type Fetcher struct {
	ext       ExternalFetcher
	maxVideos int
	attempts  int
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *zap.Logger
}

// NewFetcher creates a Fetcher with the configured retry policy.
func NewFetcher(ext ExternalFetcher, cfg *config.ScraperConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		ext:       ext,
		maxVideos: cfg.MaxVideos,
		attempts:  cfg.RetryAttempts,
		delay:     cfg.RetryDelay,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// ProfileURL returns the public profile URL for an account handle.
func ProfileURL(handle string) string {
	return "https://www.tiktok.com/@" + handle
}

// FetchAccount scrapes one account's public profile. Timeouts, non-zero
// exits, and empty output are transient: each is retried after a fixed
// delay up to the attempt bound, then demoted to a *FetchError with a nil
// record slice. A non-empty response that parses to zero valid records is
// not an error (the account may simply have nothing scrapable).
func (f *Fetcher) FetchAccount(ctx context.Context, handle string) ([]RawVideo, error) {
	profileURL := ProfileURL(handle)

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			metrics.FetchRetries.Inc()
			if err := f.sleep(ctx, f.delay); err != nil {
				lastErr = err
				break
			}
		}

		lines, err := f.ext.Fetch(ctx, profileURL, f.maxVideos)
		if err != nil {
			lastErr = err
			f.logger.Warn("scrape attempt failed",
				zap.String("handle", handle),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if len(lines) == 0 {
			lastErr = ErrEmptyOutput
			f.logger.Warn("scrape attempt returned no output",
				zap.String("handle", handle),
				zap.Int("attempt", attempt),
			)
			continue
		}

		return f.parseLines(handle, lines), nil
	}

	metrics.FetchFailures.Inc()
	return nil, &FetchError{Handle: handle, Attempts: f.attempts, Err: lastErr}
}

// parseLines decodes each line independently. Malformed lines and records
// without an id are dropped at record granularity and counted, never fatal.
func (f *Fetcher) parseLines(handle string, lines []string) []RawVideo {
	records := make([]RawVideo, 0, len(lines))
	skipped := 0

	for _, line := range lines {
		if !gjson.Valid(line) {
			metrics.LinesSkipped.WithLabelValues("invalid_json").Inc()
			skipped++
			continue
		}

		var video RawVideo
		if err := json.Unmarshal([]byte(line), &video); err != nil {
			metrics.LinesSkipped.WithLabelValues("bad_record").Inc()
			skipped++
			continue
		}
		if video.ID == "" {
			metrics.LinesSkipped.WithLabelValues("missing_id").Inc()
			skipped++
			continue
		}

		records = append(records, video)
	}

	if skipped > 0 {
		f.logger.Warn("discarded unparsable scraper lines",
			zap.String("handle", handle),
			zap.Int("skipped", skipped),
			zap.Int("kept", len(records)),
		)
	}

	return records
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
