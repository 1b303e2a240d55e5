// Package spec parses 3GPP specification identifiers and the compact
// base-36 version tokens the archive server encodes into ZIP filenames.
package spec

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel errors for identifier validation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidSpec indicates the spec identifier does not match the
	// "<type> <series>.<number>[-<part>]" form.
	ErrInvalidSpec = errors.New("invalid spec format")

	// ErrInvalidRelease indicates the release label does not match "Rel-<n>".
	ErrInvalidRelease = errors.New("invalid release format")

	// ErrUnsupportedRelease indicates a release number outside the base-36
	// encoding range used by archive filenames.
	ErrUnsupportedRelease = errors.New("unsupported release number")
)

var (
	keyExpr     = regexp.MustCompile(`^\s*(TS|TR|GS|GR)?\s*(\d{2})\.(\d{3})(?:-(\d+))?\s*$`)
	releaseExpr = regexp.MustCompile(`^\s*REL-(\d+)\s*$`)
)

// Key identifies a single specification document. Series and Number are
// fixed-width, zero-padded digit strings as they appear in archive filenames.
type Key struct {
	Type   string // TS, TR, GS or GR
	Series string // two digits, e.g. "24"
	Number string // three digits, e.g. "301"
	Part   string // part number, "1" when the identifier carries none
}

// String renders the key in the canonical "TS 24.301" form.
func (k Key) String() string {
	return fmt.Sprintf("%s %s.%s", k.Type, k.Series, k.Number)
}

// Basename returns the filename stem shared by all archives of this
// document, e.g. "24301".
func (k Key) Basename() string {
	return k.Series + k.Number
}

// ParseKey normalizes a free-form spec identifier like "TS 24.301" or
// "tr 38.101-1". The type token is optional and defaults to TS; the part
// suffix is recorded but does not affect archive lookup.
func ParseKey(raw string) (Key, error) {
	m := keyExpr.FindStringSubmatch(strings.ToUpper(raw))
	if m == nil {
		return Key{}, fmt.Errorf("%w: %q (example: TS 24.301, TR 38.101-1)", ErrInvalidSpec, raw)
	}
	k := Key{Type: m[1], Series: m[2], Number: m[3], Part: m[4]}
	if k.Type == "" {
		k.Type = "TS"
	}
	if k.Part == "" {
		k.Part = "1"
	}
	return k, nil
}

// Release is a requested document generation, e.g. Rel-16.
type Release struct {
	Number int
}

// String renders the release in the canonical "Rel-16" form.
func (r Release) String() string {
	return fmt.Sprintf("Rel-%d", r.Number)
}

// ParseRelease normalizes a free-form release label like "Rel-16" or
// "rel-8". Magnitude is validated by TokenPrefix, not here.
func ParseRelease(raw string) (Release, error) {
	m := releaseExpr.FindStringSubmatch(strings.ToUpper(raw))
	if m == nil {
		return Release{}, fmt.Errorf("%w: %q (example: Rel-16)", ErrInvalidRelease, raw)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Release{}, fmt.Errorf("%w: %q", ErrInvalidRelease, raw)
	}
	return Release{Number: n}, nil
}
