// Package resolve locates candidate archives for a specification on the
// 3GPP archive server and selects among them by version-token order.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/specfetch/specfetch/internal/spec"
)

// DefaultBaseURL is the public 3GPP specification archive root.
const DefaultBaseURL = "https://www.3gpp.org/ftp/Specs/archive"

const listingTimeout = 60 * time.Second

// Sentinel errors for resolution outcomes. Both are "not found" results,
// distinct from transport failures.
var (
	// ErrSpecUnknown indicates the document directory has no archives at all.
	ErrSpecUnknown = errors.New("spec has no archives")

	// ErrNoRelease indicates the document exists but no archive matches the
	// requested release.
	ErrNoRelease = errors.New("no archive for requested release")
)

// UpstreamError reports a non-2xx answer from the archive server.
type UpstreamError struct {
	URL    string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("archive server returned %d for %s", e.Status, e.URL)
}

// Candidate is a listing entry matching a document's archive filename
// pattern, prior to release filtering. Token is the lowercased 3-character
// version code from the filename.
type Candidate struct {
	Filename string
	Href     string
	Token    string
}

// Resolved is the immutable result of selecting a candidate archive.
type Resolved struct {
	URL     string
	Key     spec.Key
	Release spec.Release
	Token   string
}

// Resolver fetches and parses directory listings from the archive server.
type Resolver struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// New wires an HTTP client and base URL; both fall back to defaults.
func New(client *http.Client, baseURL string, logger *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: listingTimeout}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}
}

// ListingURL composes the directory listing URL for a document by
// deterministic path composition from series and number.
func (r *Resolver) ListingURL(key spec.Key) string {
	return fmt.Sprintf("%s/%s_series/%s.%s/", r.baseURL, key.Series, key.Series, key.Number)
}

// SeriesURL composes the listing URL for a whole series directory.
func (r *Resolver) SeriesURL(series string) string {
	return fmt.Sprintf("%s/%s_series/", r.baseURL, series)
}

// Candidates fetches the document's directory listing and returns the
// entries whose filename exactly matches "{series}{number}-{token}.zip".
// Links for sibling documents sharing a numeric prefix are rejected by the
// anchored pattern. Listing order is preserved; an empty result is not an
// error. Sorting is the selector's job.
func (r *Resolver) Candidates(ctx context.Context, key spec.Key) ([]Candidate, error) {
	doc, err := r.fetchListing(ctx, r.ListingURL(key))
	if err != nil {
		return nil, err
	}

	pattern := regexp.MustCompile(`^` + key.Basename() + `-([0-9a-zA-Z]{3})\.zip$`)
	var out []Candidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		name := hrefBasename(href)
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			return
		}
		out = append(out, Candidate{
			Filename: name,
			Href:     href,
			Token:    strings.ToLower(m[1]),
		})
	})

	r.logger.Debug("listing resolved", "spec", key.String(), "candidates", len(out))
	return out, nil
}

// AllZips returns every .zip link in the document's listing, regardless of
// filename pattern. Used to tell "document path has no archives at all"
// apart from "no archive matches this document".
func (r *Resolver) AllZips(ctx context.Context, key spec.Key) ([]string, error) {
	doc, err := r.fetchListing(ctx, r.ListingURL(key))
	if err != nil {
		return nil, err
	}

	var zips []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".zip") {
			zips = append(zips, hrefBasename(href))
		}
	})
	return zips, nil
}

var seriesDirExpr = regexp.MustCompile(`^(\d+)_series$`)

// Families enumerates the series directories at the archive root and
// returns their series numbers (e.g. "24" for "24_series/").
func (r *Resolver) Families(ctx context.Context) ([]string, error) {
	doc, err := r.fetchListing(ctx, r.baseURL+"/")
	if err != nil {
		return nil, err
	}

	var series []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(href, "/") {
			return
		}
		name := hrefBasename(strings.TrimSuffix(href, "/"))
		if m := seriesDirExpr.FindStringSubmatch(name); m != nil {
			series = append(series, m[1])
		}
	})
	return series, nil
}

var specDirExpr = regexp.MustCompile(`^\d+\.\d+$`)

// Series enumerates the document directories (e.g. "24.301/") within one
// series listing.
func (r *Resolver) Series(ctx context.Context, series string) ([]string, error) {
	doc, err := r.fetchListing(ctx, r.SeriesURL(series))
	if err != nil {
		return nil, err
	}

	var specs []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(href, "/") || href == "../" {
			return
		}
		name := hrefBasename(strings.TrimSuffix(href, "/"))
		if specDirExpr.MatchString(name) {
			specs = append(specs, name)
		}
	})
	return specs, nil
}

// AbsoluteURL resolves a candidate's href against the document listing URL.
func (r *Resolver) AbsoluteURL(key spec.Key, href string) string {
	base, err := url.Parse(r.ListingURL(key))
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (r *Resolver) fetchListing(ctx context.Context, listURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "specfetch/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", listURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{URL: listURL, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", listURL, err)
	}
	return doc, nil
}

// hrefBasename extracts the final path segment of a link target, tolerating
// absolute URLs and query strings.
func hrefBasename(href string) string {
	if u, err := url.Parse(href); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(href)
}
