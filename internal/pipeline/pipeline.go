// Package pipeline wires resolution, selection, download and extraction
// into the single flow shared by the CLI and the MCP tools, so neither
// adapter duplicates the matching rules.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/history"
	"github.com/specfetch/specfetch/internal/metrics"
	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/spec"
	"github.com/specfetch/specfetch/internal/task"
)

// Pipeline bundles the collaborators of one resolution-and-download path.
// History and Metrics are optional; a nil store degrades to logging only.
type Pipeline struct {
	Resolver *resolve.Resolver
	Fetcher  *fetch.Fetcher
	History  *history.Store
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Result is the outcome of a completed download stage.
type Result struct {
	Archive     resolve.Resolved
	ArchivePath string
	Extracted   []string
}

// Resolve maps a spec plus release to a concrete archive. With latest set,
// the release is ignored and the newest archive overall wins. Outcomes:
// resolve.ErrSpecUnknown when the document directory holds no archives at
// all, resolve.ErrNoRelease when archives exist but none matches.
func (p *Pipeline) Resolve(ctx context.Context, key spec.Key, rel spec.Release, latest bool) (resolve.Resolved, error) {
	start := time.Now()

	var prefix byte
	if !latest {
		var err error
		prefix, err = rel.TokenPrefix()
		if err != nil {
			return resolve.Resolved{}, err
		}
	}

	cands, err := p.Resolver.Candidates(ctx, key)
	if err != nil {
		return resolve.Resolved{}, err
	}

	if len(cands) == 0 {
		zips, err := p.Resolver.AllZips(ctx, key)
		if err != nil {
			return resolve.Resolved{}, err
		}
		if len(zips) == 0 {
			return resolve.Resolved{}, fmt.Errorf("%w: %s", resolve.ErrSpecUnknown, key)
		}
		if latest {
			return resolve.Resolved{}, fmt.Errorf("%w: %s", resolve.ErrNoRelease, key)
		}
		return resolve.Resolved{}, fmt.Errorf("%w: %s %s", resolve.ErrNoRelease, key, rel)
	}

	var best resolve.Candidate
	var ok bool
	if latest {
		best, ok = resolve.SelectLatest(cands)
	} else {
		best, ok = resolve.SelectForRelease(cands, prefix)
	}
	if !ok {
		return resolve.Resolved{}, fmt.Errorf("%w: %s %s", resolve.ErrNoRelease, key, rel)
	}

	if p.Metrics != nil {
		p.Metrics.RecordTiming(metrics.OpResolve, time.Since(start))
	}

	if latest {
		if n, ok := spec.TokenRelease(best.Token); ok {
			rel = spec.Release{Number: n}
		}
	}

	res := resolve.Resolved{
		URL:     p.Resolver.AbsoluteURL(key, best.Href),
		Key:     key,
		Release: rel,
		Token:   best.Token,
	}
	p.logger().Info("resolved archive", "spec", key.String(), "token", best.Token, "url", res.URL)
	return res, nil
}

// Download fetches the resolved archive into outDir and extracts its
// document files. Blocking; callers wanting responsiveness run it through
// RunTask in a goroutine instead.
func (p *Pipeline) Download(ctx context.Context, res resolve.Resolved, outDir string, onProgress fetch.ProgressFunc) (Result, error) {
	started := time.Now()

	archivePath, err := p.Fetcher.Download(ctx, res.URL, outDir, onProgress)
	if err != nil {
		p.record(res, "", 0, "failed", err, started)
		return Result{}, err
	}
	if p.Metrics != nil {
		p.Metrics.RecordTransfer(metrics.OpDownload, time.Since(started), fileSize(archivePath))
	}

	extractStart := time.Now()
	extracted, err := fetch.ExtractDocuments(archivePath, outDir)
	if err != nil {
		p.record(res, archivePath, len(extracted), "failed", err, started)
		return Result{}, err
	}
	if p.Metrics != nil {
		p.Metrics.RecordTiming(metrics.OpExtract, time.Since(extractStart))
	}

	p.record(res, archivePath, len(extracted), "completed", nil, started)
	return Result{Archive: res, ArchivePath: archivePath, Extracted: extracted}, nil
}

// RunTask drives a registered task through the download stage, updating
// the registry as the single writer for that task. Meant to run in its own
// goroutine for the fire-and-forget mode; panics are converted into task
// failures rather than crashing the process.
func (p *Pipeline) RunTask(ctx context.Context, mgr *task.Manager, t *task.Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger().Error("download goroutine panicked", "task_id", t.ID, "panic", r)
			mgr.Fail(t, fmt.Errorf("internal panic: %v", r))
		}
	}()

	mgr.SetRunning(t)
	res, err := p.Download(ctx, t.Archive, t.OutDir, func(pr fetch.Progress) {
		mgr.SetProgress(t, pr)
	})
	if err != nil {
		mgr.Fail(t, err)
		return
	}
	mgr.Complete(t, res.ArchivePath, res.Extracted)
}

func (p *Pipeline) record(res resolve.Resolved, archivePath string, extracted int, status string, cause error, started time.Time) {
	if p.History == nil {
		return
	}
	rec := history.Record{
		Spec:       res.Key.String(),
		Release:    res.Release.String(),
		Token:      res.Token,
		URL:        res.URL,
		LocalPath:  archivePath,
		Extracted:  extracted,
		Status:     status,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if _, err := p.History.Add(rec); err != nil {
		p.logger().Warn("failed to record download history", "error", err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
