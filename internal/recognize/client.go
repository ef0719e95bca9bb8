package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"soundscout/internal/config"
)

// ErrUnavailable marks lookups that failed for reasons on the service side:
// network trouble, throttling, or server errors. Callers may retry later.
var ErrUnavailable = errors.New("recognition service unavailable")

// Match is one candidate returned by the external recognition service.
type Match struct {
	Title  string
	Artist string
	Score  float64
}

// Client queries the external recognition service with an encoded
// fingerprint.
type Client interface {
	Lookup(ctx context.Context, fingerprint string, durationSeconds float64) ([]Match, error)
}

// HTTPClient talks to an AcoustID-style lookup endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient builds the default client from configuration.
func NewHTTPClient(cfg config.Recognition) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Lookup(ctx context.Context, fingerprint string, durationSeconds float64) ([]Match, error) {
	params := url.Values{}
	params.Set("client", c.apiKey)
	params.Set("duration", strconv.Itoa(int(durationSeconds)))
	params.Set("fingerprint", fingerprint)
	params.Set("meta", "recordings")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Results []struct {
			Score      float64 `json:"score"`
			Recordings []struct {
				Title   string `json:"title"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
			} `json:"recordings"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if payload.Status != "" && payload.Status != "ok" {
		return nil, fmt.Errorf("%w: status %q", ErrUnavailable, payload.Status)
	}

	var matches []Match
	for _, result := range payload.Results {
		for _, recording := range result.Recordings {
			names := make([]string, 0, len(recording.Artists))
			for _, artist := range recording.Artists {
				if artist.Name != "" {
					names = append(names, artist.Name)
				}
			}
			matches = append(matches, Match{
				Title:  recording.Title,
				Artist: strings.Join(names, ", "),
				Score:  result.Score,
			})
		}
	}
	return matches, nil
}
