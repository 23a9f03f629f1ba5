package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/clock"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/config"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/db/repository"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/metrics"
	"github.com/koc-tracker/tiktok-metrics-ingestion-go/internal/scraper"
)

// ErrCycleRunning is returned to a trigger that arrives while a cycle is in
// progress. Concurrent cycles are rejected, never queued: overlapping writes
// for the same account would corrupt the last-observed merge semantics.
var ErrCycleRunning = errors.New("a tracking cycle is already running")

// Scheduler states. The state is owned by one Tracker instance and
// transitioned atomically via compare-and-swap.
const (
	stateIdle int32 = iota
	stateRunning
)

// AccountFetcher yields raw video records for one account handle.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, handle string) ([]scraper.RawVideo, error)
}

// SnapshotPersister writes one fetch's records as bucketed snapshots.
type SnapshotPersister interface {
	Write(ctx context.Context, accountHandle string, records []scraper.RawVideo, observedAt time.Time) (WriteResult, error)
}

// GrowthRanker ranks an account's videos by view growth for a date.
type GrowthRanker interface {
	TopGrowth(ctx context.Context, accountHandle, dateKey string, limit int) ([]GrowthRecord, error)
}

// CycleStats summarizes one completed tracking cycle.
type CycleStats struct {
	CycleID           string        `json:"cycle_id"`
	AccountsProcessed int           `json:"accounts_processed"`
	FetchFailures     int           `json:"fetch_failures"`
	WriteFailures     int           `json:"write_failures"`
	VideosWritten     int           `json:"videos_written"`
	Duration          time.Duration `json:"duration"`
}

// Tracker runs the account loop over all tracked accounts, one cycle at a
// time. Accounts are processed sequentially with a fixed delay between them
// to avoid overwhelming the external platform.
type Tracker struct {
	accounts  repository.AccountRepository
	fetcher   AccountFetcher
	writer    SnapshotPersister
	analyzer  GrowthRanker
	publisher ReportPublisher // optional, may be nil
	clock     clock.Clock
	logger    *zap.Logger

	accountDelay               time.Duration
	growthLimit                int
	updateLastScrapedOnFailure bool

	sleep func(ctx context.Context, d time.Duration) error
	state atomic.Int32
}

// NewTracker wires the account loop. publisher may be nil, in which case
// growth reports are only logged.
func NewTracker(
	accounts repository.AccountRepository,
	fetcher AccountFetcher,
	writer SnapshotPersister,
	analyzer GrowthRanker,
	publisher ReportPublisher,
	clk clock.Clock,
	cfg *config.TrackerConfig,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		accounts:                   accounts,
		fetcher:                    fetcher,
		writer:                     writer,
		analyzer:                   analyzer,
		publisher:                  publisher,
		clock:                      clk,
		logger:                     logger,
		accountDelay:               cfg.AccountDelay,
		growthLimit:                cfg.GrowthLimit,
		updateLastScrapedOnFailure: cfg.UpdateLastScrapedOnFailure,
		sleep:                      sleepContext,
	}
}

// RunCycle executes one tracking cycle over all accounts. A second call
// while a cycle is running returns ErrCycleRunning without touching the
// in-progress cycle. Any other returned error means the cycle could not
// start or was cut short by cancellation; per-account failures are logged
// and isolated, never propagated.
func (t *Tracker) RunCycle(ctx context.Context) (*CycleStats, error) {
	if !t.state.CompareAndSwap(stateIdle, stateRunning) {
		metrics.CyclesRejected.Inc()
		return nil, ErrCycleRunning
	}
	defer t.state.Store(stateIdle)

	started := t.clock.Now()
	stats := &CycleStats{CycleID: uuid.NewString()}

	t.logger.Info("cycle starting", zap.String("cycleId", stats.CycleID))

	accounts, err := t.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		t.logger.Info("no tracked accounts", zap.String("cycleId", stats.CycleID))
		stats.Duration = t.clock.Now().Sub(started)
		return stats, nil
	}

	for _, account := range accounts {
		t.trackAccount(ctx, stats, account.Handle)

		// Inter-account pacing applies regardless of outcome.
		if err := t.sleep(ctx, t.accountDelay); err != nil {
			stats.Duration = t.clock.Now().Sub(started)
			return stats, err
		}
	}

	stats.Duration = t.clock.Now().Sub(started)
	metrics.CyclesCompleted.Inc()
	return stats, nil
}

// trackAccount runs fetch, write, growth analysis, and bookkeeping for one
// account. Nothing it does can abort the cycle.
func (t *Tracker) trackAccount(ctx context.Context, stats *CycleStats, handle string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("account processing panicked",
				zap.String("handle", handle),
				zap.Any("panic", r),
			)
		}
	}()

	records, err := t.fetcher.FetchAccount(ctx, handle)
	if err != nil {
		stats.FetchFailures++
		t.logger.Warn("fetch failed, skipping account",
			zap.String("handle", handle),
			zap.Error(err),
		)
		if t.updateLastScrapedOnFailure {
			t.touchLastScraped(ctx, handle, t.clock.Now())
		}
		return
	}

	observedAt := t.clock.Now()

	result, err := t.writer.Write(ctx, handle, records, observedAt)
	stats.VideosWritten += result.VideosWritten
	if err != nil {
		stats.WriteFailures++
		t.logger.Error("snapshot write failed, committed batches kept",
			zap.String("handle", handle),
			zap.Int("videosWritten", result.VideosWritten),
			zap.Error(err),
		)
		return
	}

	growth, err := t.analyzer.TopGrowth(ctx, handle, clock.DateKey(observedAt), t.growthLimit)
	if err != nil {
		// The write already landed; the ranking is just omitted this cycle.
		t.logger.Warn("growth analysis failed",
			zap.String("handle", handle),
			zap.Error(err),
		)
	} else {
		t.logger.Info("top growth today",
			zap.String("handle", handle),
			zap.Any("growth", growth),
		)
		t.publishReport(ctx, stats.CycleID, handle, result.VideosWritten, growth, observedAt)
	}

	t.touchLastScraped(ctx, handle, observedAt)
	stats.AccountsProcessed++
}

func (t *Tracker) publishReport(ctx context.Context, cycleID, handle string, videosWritten int, growth []GrowthRecord, observedAt time.Time) {
	if t.publisher == nil {
		return
	}

	report := &AccountReport{
		CycleID:       cycleID,
		Handle:        handle,
		VideosWritten: videosWritten,
		TopGrowth:     growth,
		ObservedAt:    observedAt,
	}
	if err := t.publisher.PublishReport(ctx, report); err != nil {
		t.logger.Warn("failed to publish account report",
			zap.String("handle", handle),
			zap.Error(err),
		)
	}
}

func (t *Tracker) touchLastScraped(ctx context.Context, handle string, scrapedAt time.Time) {
	if err := t.accounts.UpdateLastScraped(ctx, handle, scrapedAt); err != nil {
		t.logger.Warn("failed to update last_scraped",
			zap.String("handle", handle),
			zap.Error(err),
		)
	}
}

// Run drives periodic cycles until ctx is canceled. The first cycle starts
// immediately; afterwards the timer re-arms for the full interval measured
// from the end of the previous cycle, not wall-clock aligned. A tick that
// lands while a cycle is still running is a no-op.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	t.logger.Info("tracker started", zap.Duration("interval", interval))

	t.runScheduled(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopped")
			return
		case <-timer.C:
			t.runScheduled(ctx)
			timer.Reset(interval)
		}
	}
}

// sleepContext sleeps for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Tracker) runScheduled(ctx context.Context) {
	stats, err := t.RunCycle(ctx)
	switch {
	case errors.Is(err, ErrCycleRunning):
		t.logger.Info("cycle already running, skipping scheduled run")
	case err != nil:
		t.logger.Error("cycle aborted", zap.Error(err))
	default:
		t.logger.Info("cycle complete",
			zap.String("cycleId", stats.CycleID),
			zap.Int("accounts", stats.AccountsProcessed),
			zap.Int("fetchFailures", stats.FetchFailures),
			zap.Int("writeFailures", stats.WriteFailures),
			zap.Int("videos", stats.VideosWritten),
			zap.Duration("duration", stats.Duration),
		)
	}
}
