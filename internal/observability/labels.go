// Package observability - labels.go normalizes metric label values.
//
// DESIGN: Every label value passes through sanitization before it is used as
// a series key or rendered into the exposition, so a malformed inbound path
// or method can never break the text format or grow the key space without
// bound.
package observability

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// maxPathLabelLen caps the path label; longer paths are cut and marked.
	maxPathLabelLen = 160
	// maxMethodLabelLen caps the method label; anything longer is garbage.
	maxMethodLabelLen = 16
	// labelFallback replaces values that sanitize down to nothing.
	labelFallback = "unknown"
	// truncationMarker flags a path that was cut at maxPathLabelLen.
	truncationMarker = "..."
)

// LabelKey identifies one metric series. Status is empty for families that
// are not partitioned by status class.
type LabelKey struct {
	Method string
	Path   string
	Status string
}

// less orders keys for deterministic rendering.
func (k LabelKey) less(o LabelKey) bool {
	if k.Method != o.Method {
		return k.Method < o.Method
	}
	if k.Path != o.Path {
		return k.Path < o.Path
	}
	return k.Status < o.Status
}

// stripControl removes control characters (including newlines) from s.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// truncate cuts s at max bytes, backing off to a rune boundary so the cap
// never splits a multi-byte character, and appends the marker.
func truncate(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}

// sanitizeLabel strips control characters, truncates to max bytes and falls
// back to a fixed token when nothing is left.
func sanitizeLabel(s string, max int) string {
	s = strings.TrimSpace(stripControl(s))
	if s == "" {
		return labelFallback
	}
	if len(s) > max {
		s = truncate(s, max)
	}
	return s
}

// normalizeMethod uppercases and bounds the HTTP method label.
func normalizeMethod(method string) string {
	return strings.ToUpper(sanitizeLabel(method, maxMethodLabelLen))
}

// normalizePath bounds the path label, defaulting to "/" when empty.
func normalizePath(path string) string {
	path = strings.TrimSpace(stripControl(path))
	if path == "" {
		return "/"
	}
	if len(path) > maxPathLabelLen {
		path = truncate(path, maxPathLabelLen)
	}
	return path
}

// statusClass maps an HTTP status code to its class label ("200" -> "2xx").
// Codes below 100 or above 599 fall into the "0xx" bucket rather than
// minting arbitrary label values.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "0xx"
	}
	return strconv.Itoa(status/100) + "xx"
}
