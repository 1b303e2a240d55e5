package spec

import (
	"fmt"
)

// TokenLen is the fixed width of a version token in archive filenames,
// e.g. the "i60" in "38331-i60.zip".
const TokenLen = 3

// TokenPrefix returns the leading version-token character for the release:
// the digit itself below 10, 'a'..'z' for 10..35. Releases at or above 36
// cannot be encoded in a single base-36 digit.
func (r Release) TokenPrefix() (byte, error) {
	switch {
	case r.Number >= 0 && r.Number < 10:
		return byte('0' + r.Number), nil
	case r.Number >= 10 && r.Number < 36:
		return byte('a' + r.Number - 10), nil
	default:
		return 0, fmt.Errorf("%w: %d (must be 0-35)", ErrUnsupportedRelease, r.Number)
	}
}

// ParseToken returns the base-36 integer value of a version token and
// whether the token is well formed. Tokens are compared by this value:
// "i00" < "i5z" < "i60".
func ParseToken(token string) (int64, bool) {
	if len(token) != TokenLen {
		return 0, false
	}
	var v int64
	for i := 0; i < len(token); i++ {
		d, ok := digit36(token[i])
		if !ok {
			return 0, false
		}
		v = v*36 + int64(d)
	}
	return v, true
}

// TokenOrderValue is the ordering key for version tokens. Malformed tokens
// yield 0 so that unparseable filenames sort below every real version
// instead of aborting resolution; callers that need to distinguish the
// fallback use ParseToken.
func TokenOrderValue(token string) int64 {
	v, ok := ParseToken(token)
	if !ok {
		return 0
	}
	return v
}

// TokenRelease estimates which release a token belongs to from its leading
// character. The forward mapping in TokenPrefix is authoritative; this
// inverse exists only for grouping listings by release.
func TokenRelease(token string) (int, bool) {
	if len(token) != TokenLen {
		return 0, false
	}
	c := token[0]
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	case c >= 'A' && c <= 'Z':
		return 10 + int(c-'A'), true
	default:
		return 0, false
	}
}

func digit36(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	case c >= 'A' && c <= 'Z':
		return 10 + int(c-'A'), true
	default:
		return 0, false
	}
}
