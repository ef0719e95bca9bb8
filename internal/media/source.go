package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedSource marks source references the pipeline cannot acquire.
var ErrUnsupportedSource = errors.New("unsupported source")

// SourceKind distinguishes direct HTTP downloads from sources that need a
// site-specific resolver before any bytes can be pulled.
type SourceKind string

const (
	SourceDirect   SourceKind = "direct"
	SourceResolved SourceKind = "resolved"
)

// Source is a validated, classified source reference.
type Source struct {
	Raw  string
	Kind SourceKind
	URL  *url.URL
}

var resolvedHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
	"youtu.be":          {},
}

// ParseSource validates a raw source reference and classifies it. Only http
// and https schemes are accepted.
func ParseSource(raw string) (Source, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Source{}, fmt.Errorf("%w: empty reference", ErrUnsupportedSource)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return Source{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, parsed.Scheme)
	}
	if parsed.Host == "" {
		return Source{}, fmt.Errorf("%w: missing host", ErrUnsupportedSource)
	}

	source := Source{Raw: trimmed, Kind: SourceDirect, URL: parsed}
	if _, ok := resolvedHosts[strings.ToLower(parsed.Hostname())]; ok {
		source.Kind = SourceResolved
	}
	return source, nil
}
