package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/history"
	"github.com/specfetch/specfetch/internal/metrics"
	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/spec"
	"github.com/specfetch/specfetch/internal/task"
)

// specArchive builds a zip holding one doc file and one ignorable entry.
func specArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"24301-g40.doc", "readme.txt"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// archiveServer serves a 3GPP-style listing for TS 24.301 plus the archives
// it links to.
func archiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	archive := specArchive(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/24_series/24.301/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
			<a href="../">up</a>
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

func newPipeline(t *testing.T, server *httptest.Server) *Pipeline {
	t.Helper()
	return &Pipeline{
		Resolver: resolve.New(server.Client(), server.URL, nil),
		Fetcher:  fetch.NewFetcher(server.Client(), nil),
		Metrics:  metrics.NewCollector(),
	}
}

func parse(t *testing.T, rawSpec, rawRel string) (spec.Key, spec.Release) {
	t.Helper()
	key, err := spec.ParseKey(rawSpec)
	require.NoError(t, err)
	rel, err := spec.ParseRelease(rawRel)
	require.NoError(t, err)
	return key, rel
}

func TestResolveSelectsHighestVersionInRelease(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	p := newPipeline(t, server)
	key, rel := parse(t, "TS 24.301", "Rel-16")

	res, err := p.Resolve(context.Background(), key, rel, false)
	require.NoError(t, err)
	assert.Equal(t, "g40", res.Token)
	assert.Equal(t, server.URL+"/24_series/24.301/24301-g40.zip", res.URL)
}

func TestResolveLatestIgnoresRelease(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	p := newPipeline(t, server)
	key, rel := parse(t, "TS 24.301", "Rel-16")

	res, err := p.Resolve(context.Background(), key, rel, true)
	require.NoError(t, err)
	assert.Equal(t, "i60", res.Token)
	assert.Equal(t, 18, res.Release.Number, "release derived from the winning token")
}

func TestResolveMissingRelease(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	p := newPipeline(t, server)
	key, rel := parse(t, "TS 24.301", "Rel-8")

	_, err := p.Resolve(context.Background(), key, rel, false)
	assert.ErrorIs(t, err, resolve.ErrNoRelease)
}

func TestResolveLatestNoMatchingArchive(t *testing.T) {
	// Zip files exist in the directory but none fits the document's
	// filename pattern.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="24302-g40.zip">24302-g40.zip</a>`))
	}))
	defer server.Close()

	p := newPipeline(t, server)
	key, err := spec.ParseKey("TS 24.301")
	require.NoError(t, err)

	_, err = p.Resolve(context.Background(), key, spec.Release{}, true)
	assert.ErrorIs(t, err, resolve.ErrNoRelease)
	assert.NotContains(t, err.Error(), "Rel-0", "no release was requested")
}

func TestResolveUnknownSpec(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<a href="../">up</a>`))
	}))
	defer server.Close()

	p := newPipeline(t, server)
	key, rel := parse(t, "TS 24.301", "Rel-16")

	_, err := p.Resolve(context.Background(), key, rel, false)
	assert.ErrorIs(t, err, resolve.ErrSpecUnknown)
}

func TestResolveUnsupportedRelease(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	p := newPipeline(t, server)
	key, _ := parse(t, "TS 24.301", "Rel-16")

	_, err := p.Resolve(context.Background(), key, spec.Release{Number: 40}, false)
	assert.ErrorIs(t, err, spec.ErrUnsupportedRelease)
}

func TestDownloadExtractsDocuments(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	p := newPipeline(t, server)
	key, rel := parse(t, "TS 24.301", "Rel-16")

	res, err := p.Resolve(context.Background(), key, rel, false)
	require.NoError(t, err)

	outDir := t.TempDir()
	result, err := p.Download(context.Background(), res, outDir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"24301-g40.doc"}, result.Extracted)
	assert.FileExists(t, result.ArchivePath)

	snap := p.Metrics.Snapshot()
	require.NotNil(t, snap.Download)
	assert.Equal(t, int64(1), snap.Download.Count)
	require.NotNil(t, snap.Extract)
}

func TestDownloadRecordsHistory(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	store, err := history.Open(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer store.Close()

	p := newPipeline(t, server)
	p.History = store
	key, rel := parse(t, "TS 24.301", "Rel-16")

	res, err := p.Resolve(context.Background(), key, rel, false)
	require.NoError(t, err)
	_, err = p.Download(context.Background(), res, t.TempDir(), nil)
	require.NoError(t, err)

	recs, err := store.Recent(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "TS 24.301", recs[0].Spec)
	assert.Equal(t, "completed", recs[0].Status)
	assert.Equal(t, 1, recs[0].Extracted)
}

func TestRunTask(t *testing.T) {
	server := archiveServer(t)
	defer server.Close()

	p := newPipeline(t, server)
	key, rel := parse(t, "TS 24.301", "Rel-16")

	res, err := p.Resolve(context.Background(), key, rel, false)
	require.NoError(t, err)

	mgr := task.NewManager(nil)
	tk := mgr.Create(res, t.TempDir())

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.RunTask(context.Background(), mgr, tk)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("task did not finish")
	}

	snap, ok := mgr.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, task.StatusCompleted, snap.Status)
	assert.Equal(t, []string{"24301-g40.doc"}, snap.Extracted)
	assert.Equal(t, 1.0, snap.Fraction)
}

func TestRunTaskFailureIsPersisted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := newPipeline(t, server)
	key, _ := parse(t, "TS 24.301", "Rel-16")

	mgr := task.NewManager(nil)
	tk := mgr.Create(resolve.Resolved{
		URL: server.URL + "/24301-g40.zip",
		Key: key,
	}, t.TempDir())

	p.RunTask(context.Background(), mgr, tk)

	snap, ok := mgr.Get(tk.ID)
	require.True(t, ok)
	assert.Equal(t, task.StatusFailed, snap.Status)
	assert.NotEmpty(t, snap.Error)
}
