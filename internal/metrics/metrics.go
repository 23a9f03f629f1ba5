// Package metrics exposes Prometheus counters for the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinesSkipped counts scraper output lines dropped at record
	// granularity: non-JSON lines and records without an id.
	LinesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_scraper_lines_skipped_total",
		Help: "Scraper output lines discarded during parsing.",
	}, []string{"reason"})

	// FetchRetries counts retried scrape attempts.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_fetch_retries_total",
		Help: "Scrape attempts retried after a transient failure.",
	})

	// FetchFailures counts fetches that exhausted all attempts.
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_fetch_failures_total",
		Help: "Account fetches that failed after exhausting retries.",
	})

	// BatchCommits counts store batch commits.
	BatchCommits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_store_batch_commits_total",
		Help: "Snapshot write batches committed to the store.",
	})

	// VideosWritten counts video records persisted.
	VideosWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_videos_written_total",
		Help: "Video records written as snapshot upserts.",
	})

	// CyclesCompleted counts finished tracking cycles.
	CyclesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_cycles_completed_total",
		Help: "Tracking cycles run to completion.",
	})

	// CyclesRejected counts triggers rejected by the single-flight guard.
	CyclesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_cycles_rejected_total",
		Help: "Cycle triggers rejected because a cycle was already running.",
	})
)
