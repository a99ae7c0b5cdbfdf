package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSource reads options from GET {url}, which answers
// {"Environment": [...], "NarrowEnvironment": [...]}.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source for url with a 10s timeout client.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

// FilterOptions implements OptionsSource.
func (h *HTTPSource) FilterOptions(ctx context.Context) (Options, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Options{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return Options{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Options{}, fmt.Errorf("GET %s: unexpected status %d", h.URL, resp.StatusCode)
	}
	var opts Options
	if err := json.NewDecoder(resp.Body).Decode(&opts); err != nil {
		return Options{}, fmt.Errorf("decode filter options: %w", err)
	}
	return opts, nil
}

// StaticSource serves fixed options.
type StaticSource Options

// FilterOptions implements OptionsSource.
func (s StaticSource) FilterOptions(context.Context) (Options, error) {
	return Options(s), nil
}
