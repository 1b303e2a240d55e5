package tools

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfetch/specfetch/internal/config"
	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/pipeline"
	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/task"
)

func testArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"24301-i60.doc", "cover.txt"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// upstream serves a root listing, the TS 24.301 document listing and the
// archives it links to.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	archive := testArchive(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`
			<a href="21_series/">21_series</a>
			<a href="24_series/">24_series</a>`))
	})
	mux.HandleFunc("/24_series/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/24_series/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`
			<a href="../">..</a>
			<a href="24.301/">24.301</a>
			<a href="24.501/">24.501</a>
			<a href="latest/">latest</a>`))
	})
	mux.HandleFunc("/24_series/24.301/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
			<a href="24301-g10.zip">24301-g10.zip</a>
			<a href="24301-g40.zip">24301-g40.zip</a>
			<a href="24301-i60.zip">24301-i60.zip</a>`))
	})
	for _, name := range []string{"24301-g10.zip", "24301-g40.zip", "24301-i60.zip"} {
		mux.HandleFunc("/24_series/24.301/"+name, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(archive)
		})
	}
	return httptest.NewServer(mux)
}

func testDeps(t *testing.T, server *httptest.Server) (*Dependencies, *config.Config) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	deps := &Dependencies{
		Pipeline: &pipeline.Pipeline{
			Resolver: resolve.New(server.Client(), server.URL, logger),
			Fetcher:  fetch.NewFetcher(server.Client(), logger),
			Logger:   logger,
		},
		Tasks:  task.NewManager(logger),
		Logger: logger,
	}
	cfg := &config.Config{OutputDir: t.TempDir()}
	return deps, cfg
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestResolveSpecRegistersTask(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, cfg := testDeps(t, server)

	handler := NewResolveSpecHandler(deps, cfg)
	res, _, err := handler(context.Background(), nil, ResolveSpecInput{Spec: "TS 24.301", Release: "Rel-16"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out ResolveSpecResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "TS 24.301", out.Spec)
	assert.Equal(t, "Rel-16", out.Release)
	assert.Equal(t, "g40", out.Version)
	assert.Contains(t, out.URL, "24301-g40.zip")

	snap, ok := deps.Tasks.Get(out.TaskID)
	require.True(t, ok)
	assert.Equal(t, task.StatusPending, snap.Status)
	assert.Equal(t, cfg.OutputDir, snap.OutDir)
}

func TestResolveSpecLatestWhenReleaseOmitted(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, cfg := testDeps(t, server)

	handler := NewResolveSpecHandler(deps, cfg)
	res, _, err := handler(context.Background(), nil, ResolveSpecInput{Spec: "24.301"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out ResolveSpecResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "i60", out.Version)
	assert.Equal(t, "Rel-18", out.Release)
}

func TestResolveSpecErrorsNeverRaise(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, cfg := testDeps(t, server)

	handler := NewResolveSpecHandler(deps, cfg)

	tests := []struct {
		name  string
		input ResolveSpecInput
		hint  string
	}{
		{"missing spec", ResolveSpecInput{}, "spec is required"},
		{"bad identifier", ResolveSpecInput{Spec: "not a spec"}, "24.301"},
		{"bad release", ResolveSpecInput{Spec: "24.301", Release: "sixteen"}, "Rel-16"},
		{"release too high", ResolveSpecInput{Spec: "24.301", Release: "Rel-40"}, "Rel-35"},
		{"no matching release", ResolveSpecInput{Spec: "24.301", Release: "Rel-8"}, "list_releases"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := handler(context.Background(), nil, tt.input)
			require.NoError(t, err, "tool errors are results, not Go errors")
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.hint)
		})
	}
}

func TestStartDownloadRunsToCompletion(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, cfg := testDeps(t, server)

	resolveHandler := NewResolveSpecHandler(deps, cfg)
	res, _, err := resolveHandler(context.Background(), nil, ResolveSpecInput{Spec: "24.301", Release: "Rel-18"})
	require.NoError(t, err)
	var resolved ResolveSpecResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &resolved))

	startHandler := NewStartDownloadHandler(deps)
	res, _, err = startHandler(context.Background(), nil, StartDownloadInput{TaskID: resolved.TaskID})
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	// Starting the same task twice must fail with a pollable hint.
	res, _, err = startHandler(context.Background(), nil, StartDownloadInput{TaskID: resolved.TaskID})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "already started")

	statusHandler := NewDownloadStatusHandler(deps)
	deadline := time.Now().Add(5 * time.Second)
	var status TaskStatusResult
	for {
		res, _, err = statusHandler(context.Background(), nil, DownloadStatusInput{TaskID: resolved.TaskID})
		require.NoError(t, err)
		require.False(t, res.IsError)
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &status))
		if status.Status == string(task.StatusCompleted) || status.Status == string(task.StatusFailed) {
			break
		}
		require.True(t, time.Now().Before(deadline), "download did not finish in time")
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, string(task.StatusCompleted), status.Status)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 1.0, *status.Progress)
	assert.Contains(t, status.ArchivePath, "24301-i60.zip")
	assert.Equal(t, []string{"24301-i60.doc"}, status.Extracted)
	assert.Empty(t, status.Error)
}

func TestStartDownloadUnknownTask(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, _ := testDeps(t, server)

	handler := NewStartDownloadHandler(deps)
	res, _, err := handler(context.Background(), nil, StartDownloadInput{TaskID: "nope"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "unknown task")
}

func TestDownloadStatusListsAllTasks(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, cfg := testDeps(t, server)

	resolveHandler := NewResolveSpecHandler(deps, cfg)
	for i := 0; i < 2; i++ {
		_, _, err := resolveHandler(context.Background(), nil, ResolveSpecInput{Spec: "24.301"})
		require.NoError(t, err)
	}

	handler := NewDownloadStatusHandler(deps)
	res, _, err := handler(context.Background(), nil, DownloadStatusInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out []TaskStatusResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Len(t, out, 2)
}

func TestListReleasesGroupsVersions(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, _ := testDeps(t, server)

	handler := NewListReleasesHandler(deps)
	res, _, err := handler(context.Background(), nil, ListReleasesInput{Spec: "TS 24.301"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out ListReleasesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "TS 24.301", out.Spec)
	assert.Equal(t, "24301-i60.zip", out.Newest)
	require.Len(t, out.Releases, 2)
	assert.Equal(t, "Rel-16", out.Releases[0].Release)
	assert.Equal(t, []string{"g10", "g40"}, out.Releases[0].Versions)
	assert.Equal(t, "g40", out.Releases[0].Latest)
	assert.Equal(t, "Rel-18", out.Releases[1].Release)
}

func TestListReleasesSingleRelease(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, _ := testDeps(t, server)

	handler := NewListReleasesHandler(deps)
	res, _, err := handler(context.Background(), nil, ListReleasesInput{Spec: "24.301", Release: "Rel-16"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out ListReleasesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out.Releases, 1)
	assert.Equal(t, "Rel-16", out.Releases[0].Release)

	res, _, err = handler(context.Background(), nil, ListReleasesInput{Spec: "24.301", Release: "Rel-9"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListReleasesEnumeratesSeries(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, _ := testDeps(t, server)

	handler := NewListReleasesHandler(deps)
	res, _, err := handler(context.Background(), nil, ListReleasesInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out ListReleasesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, []string{"21", "24"}, out.Series)
	assert.Empty(t, out.Releases)
}

func TestListReleasesDrillsIntoSeries(t *testing.T) {
	server := upstream(t)
	defer server.Close()
	deps, _ := testDeps(t, server)

	handler := NewListReleasesHandler(deps)
	res, _, err := handler(context.Background(), nil, ListReleasesInput{Series: "24"})
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out ListReleasesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, []string{"24"}, out.Series)
	assert.Equal(t, []string{"24.301", "24.501"}, out.Specs)
	assert.Empty(t, out.Releases)

	res, _, err = handler(context.Background(), nil, ListReleasesInput{Series: "series-24"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "invalid series number")

	// A series absent from the archive root is an upstream miss, not a crash.
	res, _, err = handler(context.Background(), nil, ListReleasesInput{Series: "99"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
