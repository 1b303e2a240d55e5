// Package fetch downloads resolved archives and extracts document files
// from them.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/specfetch/specfetch/internal/resolve"
)

// DefaultTimeout bounds a whole archive download. Archives can run to
// hundreds of megabytes and the upstream server is slow, hence the
// generous value.
const DefaultTimeout = 600 * time.Second

const (
	progressStepPercent = 10
	progressStepBytes   = 1 << 20 // when total size is unknown
)

// Progress reports download advancement. Total is -1 when the server did
// not send a Content-Length.
type Progress struct {
	Bytes int64
	Total int64
	Done  bool
}

// Fraction returns progress in [0,1], or -1 when the total is unknown.
func (p Progress) Fraction() float64 {
	if p.Done {
		return 1
	}
	if p.Total <= 0 {
		return -1
	}
	return float64(p.Bytes) / float64(p.Total)
}

// ProgressFunc receives coarse-grained progress notifications: every ~10%
// of a known total, every ~1MiB of an unknown one, and always once with
// Done set after the last byte.
type ProgressFunc func(Progress)

// Fetcher streams archives to disk.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher wires an HTTP client; nil gets a client with DefaultTimeout.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

// Download streams the archive at rawURL into destDir, creating the
// directory if needed. The file is named after the URL's basename and
// written through a .part temp file renamed into place, so a failed
// download never leaves a truncated archive behind. An existing file of
// the same name is overwritten. Returns the local path.
func (f *Fetcher) Download(ctx context.Context, rawURL, destDir string, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "specfetch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &resolve.UpstreamError{URL: rawURL, Status: resp.StatusCode}
	}

	dest := filepath.Join(destDir, archiveName(rawURL))
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}

	total := resp.ContentLength
	f.logger.Info("downloading archive", "url", rawURL, "dest", dest, "bytes", total)

	tracker := &progressTracker{total: total, report: onProgress}
	if _, err := io.Copy(out, io.TeeReader(resp.Body, tracker)); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return "", fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", fmt.Errorf("finalize %s: %w", dest, err)
	}

	tracker.finish()
	f.logger.Info("download complete", "dest", dest, "bytes", tracker.bytes)
	return dest, nil
}

// progressTracker batches progress callbacks to the coarse steps the
// observability contract asks for. Completion is always reported.
type progressTracker struct {
	total  int64
	bytes  int64
	report ProgressFunc

	lastPercent int64
	lastChunk   int64
}

func (t *progressTracker) Write(p []byte) (int, error) {
	t.bytes += int64(len(p))
	if t.report == nil {
		return len(p), nil
	}

	if t.total > 0 {
		percent := t.bytes * 100 / t.total
		if percent/progressStepPercent > t.lastPercent/progressStepPercent {
			t.lastPercent = percent
			t.report(Progress{Bytes: t.bytes, Total: t.total})
		}
	} else if t.bytes/progressStepBytes > t.lastChunk {
		t.lastChunk = t.bytes / progressStepBytes
		t.report(Progress{Bytes: t.bytes, Total: -1})
	}
	return len(p), nil
}

func (t *progressTracker) finish() {
	if t.report == nil {
		return
	}
	total := t.total
	if total <= 0 {
		total = t.bytes
	}
	t.report(Progress{Bytes: t.bytes, Total: total, Done: true})
}

// archiveName derives the local filename from the URL's path basename,
// dropping any query string.
func archiveName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" && u.Path != "/" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}
