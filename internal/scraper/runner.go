// Package scraper fetches raw video records for an account by invoking the
// external yt-dlp tool and parsing its line-delimited JSON output.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// ExternalFetcher is the capability boundary to the scraping tool. It
// returns the raw stdout lines for one profile URL, capped at limit items.
// Production binds this to a yt-dlp process; tests bind canned output.
type ExternalFetcher interface {
	Fetch(ctx context.Context, profileURL string, limit int) ([]string, error)
}

// YtdlpRunner invokes yt-dlp through the configured Python interpreter with
// a hard wall-clock timeout per attempt.
type YtdlpRunner struct {
	PythonPath string
	Timeout    time.Duration
}

// NewYtdlpRunner creates a runner with the given interpreter and per-attempt timeout.
func NewYtdlpRunner(pythonPath string, timeout time.Duration) *YtdlpRunner {
	return &YtdlpRunner{PythonPath: pythonPath, Timeout: timeout}
}

var _ ExternalFetcher = (*YtdlpRunner)(nil)

// Fetch runs `python -m yt_dlp --playlist-end <limit> --dump-json <url>` and
// splits stdout into lines. The process is killed when the timeout elapses.
func (r *YtdlpRunner) Fetch(ctx context.Context, profileURL string, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.PythonPath,
		"-m", "yt_dlp",
		"--playlist-end", strconv.Itoa(limit),
		"--dump-json",
		profileURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("yt-dlp timed out after %s: %w", r.Timeout, ctx.Err())
		}
		return nil, fmt.Errorf("yt-dlp failed: %w (stderr: %s)", err, truncate(stderr.String(), 512))
	}

	return splitLines(stdout.Bytes()), nil
}

func splitLines(out []byte) []string {
	var lines []string
	for _, raw := range bytes.Split(out, []byte("\n")) {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
