package archive

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/webcapsule/webcapsule/internal/common"
)

// Domain is a hostname split into its registrable part and the subdomain
// prefix. The split is on the last two dot-segments: "shop.example.com"
// yields Main "example.com" and Sub "shop".
type Domain struct {
	Main string `json:"main"`
	Sub  string `json:"sub,omitempty"`
}

// ParsedURL is the full breakdown of a capture target URL, stamped with the
// capture time at parse.
type ParsedURL struct {
	Full        string    `json:"full"`
	Protocol    string    `json:"protocol"`
	Domain      Domain    `json:"domain"`
	Path        []string  `json:"path"`
	Query       string    `json:"query,omitempty"`
	CaptureTime time.Time `json:"-"`
}

// BundleMetadata is the metadata.json payload of an archive bundle. The
// field layout is consumed externally and must be preserved. CaptureTime is
// colon/dot-sanitized for filesystem safety.
type BundleMetadata struct {
	CaptureTime string    `json:"captureTime"`
	URL         ParsedURL `json:"url"`
	Page        any       `json:"page"`
}

// ParseURL splits a URL into protocol, main/sub domain, non-empty path
// segments and query string, and stamps the current UTC time as the capture
// timestamp.
func ParseURL(rawURL string) (ParsedURL, error) {
	return parseURLAt(rawURL, time.Now().UTC())
}

func parseURLAt(rawURL string, now time.Time) (ParsedURL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ParsedURL{}, common.WrapError(err, "malformed capture URL")
	}

	segments := make([]string, 0, 4)
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	query := ""
	if u.RawQuery != "" {
		query = "?" + u.RawQuery
	}

	return ParsedURL{
		Full:        rawURL,
		Protocol:    u.Scheme,
		Domain:      splitDomain(u.Hostname()),
		Path:        segments,
		Query:       query,
		CaptureTime: now,
	}, nil
}

// splitDomain separates a hostname into registrable main domain (last two
// dot-segments) and subdomain prefix.
func splitDomain(host string) Domain {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return Domain{Main: host}
	}
	return Domain{
		Main: strings.Join(parts[len(parts)-2:], "."),
		Sub:  strings.Join(parts[:len(parts)-2], "."),
	}
}

// BuildPath derives the deterministic bundle folder path:
// baseDir/main/sub/pathSegments with empty segments dropped.
func BuildPath(baseDir string, parsed ParsedURL) string {
	segments := make([]string, 0, 3+len(parsed.Path))
	segments = append(segments, baseDir, parsed.Domain.Main, parsed.Domain.Sub)
	segments = append(segments, parsed.Path...)

	kept := segments[:0]
	for _, seg := range segments {
		if seg != "" {
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, "/")
}

// BuildMetadata produces the metadata.json payload for a bundle: sanitized
// capture time, full URL breakdown, and the page metadata blob passed
// through unchanged.
func BuildMetadata(parsed ParsedURL, page any) ([]byte, error) {
	meta := BundleMetadata{
		CaptureTime: SanitizeTimestamp(parsed.CaptureTime),
		URL:         parsed,
		Page:        page,
	}
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, common.WrapError(err, "failed to marshal bundle metadata")
	}
	return payload, nil
}

// SanitizeTimestamp formats t as ISO-8601 with ':' and '.' replaced by '-'
// so the value is safe inside file and folder names.
func SanitizeTimestamp(t time.Time) string {
	iso := t.Format(time.RFC3339Nano)
	iso = strings.ReplaceAll(iso, ":", "-")
	iso = strings.ReplaceAll(iso, ".", "-")
	return iso
}
