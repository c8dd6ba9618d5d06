package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// Upstream is the HTTP client for the backend task service. The base URL can
// be swapped at runtime (config reload).
type Upstream struct {
	baseURL atomic.Pointer[string]
	http    *http.Client
}

// upstreamResponse is a fully read backend response.
type upstreamResponse struct {
	Status int
	Body   []byte
}

func (r *upstreamResponse) ok() bool {
	return r.Status >= 200 && r.Status <= 299
}

// NewUpstream creates an Upstream for baseURL. A nil client means
// http.DefaultClient semantics with no timeout.
func NewUpstream(baseURL string, hc *http.Client) *Upstream {
	if hc == nil {
		hc = &http.Client{}
	}
	u := &Upstream{http: hc}
	u.SetBaseURL(baseURL)
	return u
}

// SetBaseURL points the upstream at a new backend origin.
func (u *Upstream) SetBaseURL(baseURL string) {
	s := strings.TrimRight(baseURL, "/")
	u.baseURL.Store(&s)
}

// BaseURL returns the current backend origin.
func (u *Upstream) BaseURL() string {
	return *u.baseURL.Load()
}

// Do sends a request to the backend. A returned error means the backend could
// not be reached or its body could not be read; HTTP error statuses are not
// errors.
func (u *Upstream) Do(ctx context.Context, method, path string, body []byte, header http.Header) (*upstreamResponse, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.BaseURL()+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	return &upstreamResponse{Status: resp.StatusCode, Body: data}, nil
}

// Ping checks that the backend answers its health route.
func (u *Upstream) Ping(ctx context.Context) error {
	resp, err := u.Do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return fmt.Errorf("backend health: status %d", resp.Status)
	}
	return nil
}
