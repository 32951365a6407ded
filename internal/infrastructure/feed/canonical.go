package feed

import (
	"net/url"
	"strings"
)

const trackingPrefix = "utm_"

// CanonicalURL strips tracking query parameters (names starting with "utm_",
// case-insensitive) so links pointing at the same article compare equal.
// Order of the remaining parameters is preserved; scheme, host, path, and
// fragment are untouched. On any parse failure the input is returned
// unchanged, so dedup degrades to exact match instead of failing ingestion.
func CanonicalURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if parsed.RawQuery == "" {
		return parsed.String()
	}

	var kept []string
	for _, pair := range strings.Split(parsed.RawQuery, "&") {
		name := pair
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			name = pair[:idx]
		}
		if strings.HasPrefix(strings.ToLower(name), trackingPrefix) {
			continue
		}
		kept = append(kept, pair)
	}

	parsed.RawQuery = strings.Join(kept, "&")
	return parsed.String()
}
