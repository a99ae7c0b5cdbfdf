package component

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client consumes a remote catalog/schema service:
//
//	GET {base}/{provider}/components
//	GET {base}/{provider}/components/{type}
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a catalog client. A nil httpClient gets a 30s timeout client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// List implements Catalog.
func (c *Client) List(ctx context.Context, provider string) ([]Definition, error) {
	var defs []Definition
	if err := c.getJSON(ctx, "/"+url.PathEscape(provider)+"/components", &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Get implements Catalog.
func (c *Client) Get(ctx context.Context, provider, componentType string) (*Detail, error) {
	var d Detail
	path := "/" + url.PathEscape(provider) + "/components/" + url.PathEscape(componentType)
	if err := c.getJSON(ctx, path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
