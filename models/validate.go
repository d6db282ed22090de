package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateTaskURL trims and parses raw as an absolute URL and enforces the
// http/https scheme. It runs before any browser activity, so a rejected
// input costs nothing.
func ValidateTaskURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewScrapeError(ErrCodeInvalidProtocol, "empty URL", nil)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", NewScrapeError(ErrCodeInvalidProtocol, fmt.Sprintf("unparsable URL %q", trimmed), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", NewScrapeError(ErrCodeInvalidProtocol, fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return "", NewScrapeError(ErrCodeInvalidProtocol, fmt.Sprintf("URL %q has no host", trimmed), nil)
	}

	return trimmed, nil
}
