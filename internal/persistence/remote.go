package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/json-to-terraform/atc/internal/diagram"
)

// Remote keeps diagrams in a named-archive service:
//
//	POST {base}/{provider}/architectures/{name}
//	GET  {base}/{provider}/architectures
//	GET  {base}/{provider}/architectures/{name}
type Remote struct {
	baseURL  string
	provider string
	http     *http.Client
}

// NewRemote returns a remote backend. A nil httpClient gets a 30s timeout client.
func NewRemote(baseURL, provider string, httpClient *http.Client) *Remote {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), provider: provider, http: httpClient}
}

type archiveList struct {
	Architectures []string `json:"architectures"`
}

// Save submits the whole diagram in one request.
func (r *Remote) Save(ctx context.Context, name string, d diagram.Diagram) error {
	d = d.Clone()
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode diagram: %w", err)
	}
	_, err = r.do(ctx, http.MethodPost, r.path(name), body, nil)
	return err
}

// Load fetches one archive. Properties stay in the node data.
func (r *Remote) Load(ctx context.Context, name string) (*Bundle, error) {
	var d diagram.Diagram
	if _, err := r.do(ctx, http.MethodGet, r.path(name), nil, &d); err != nil {
		return nil, err
	}
	for i := range d.Nodes {
		d.Nodes[i].Data = diagram.NormalizeMap(d.Nodes[i].Data)
	}
	return &Bundle{Diagram: d.Clone()}, nil
}

// List returns the archive names the service knows.
func (r *Remote) List(ctx context.Context) ([]string, error) {
	var out archiveList
	if _, err := r.do(ctx, http.MethodGet, r.path(""), nil, &out); err != nil {
		return nil, err
	}
	if out.Architectures == nil {
		out.Architectures = []string{}
	}
	return out.Architectures, nil
}

func (r *Remote) path(name string) string {
	p := "/" + url.PathEscape(r.provider) + "/architectures"
	if name != "" {
		p += "/" + url.PathEscape(name)
	}
	return p
}

func (r *Remote) do(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusBadRequest:
		return resp.StatusCode, fmt.Errorf("%w: %s", ErrInvalidName, remoteMessage(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return resp.StatusCode, fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, remoteMessage(resp.Body))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// remoteMessage extracts the error text of a JSON error body, falling back
// to the raw (truncated) body.
func remoteMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 1024))
	var e struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(raw, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	return strings.TrimSpace(string(raw))
}
