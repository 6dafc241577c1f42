package urlutil

import (
	"net/url"
	"strings"
)

// StripFragment removes URL fragments while keeping scheme/host/path/query.
func StripFragment(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err == nil {
		parsed.Fragment = ""
		return parsed.String()
	}

	if idx := strings.Index(trimmed, "#"); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// IsValid reports whether raw is an absolute http(s) URL with a host.
func IsValid(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// IsBlacklisted reports whether the URL's domain matches one of the
// blacklisted domains exactly or as a subdomain.
func IsBlacklisted(raw string, blacklisted []string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	domain := strings.ToLower(parsed.Hostname())
	for _, b := range blacklisted {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if domain == b || strings.HasSuffix(domain, "."+b) {
			return true
		}
	}
	return false
}
