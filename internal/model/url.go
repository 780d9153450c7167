package model

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a URL for identity comparison across bookmark
// stores that do not share an id space: scheme and host are lowercased,
// trailing slashes dropped from the path, the fragment removed and the
// query kept. Inputs without a parsable host are returned unchanged.
// NormalizeURL is idempotent.
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(strings.TrimRight(u.EscapedPath(), "/"))
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}
