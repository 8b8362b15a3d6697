package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/margalk/catms/internal/export"
	"github.com/margalk/catms/internal/platform/auth"
)

// maxErrorBody bounds how much of an upstream error body is quoted.
const maxErrorBody = 512

// RESTFetcher reads rows from the clinic REST API: GET {BaseURL}/{endpoint}.
type RESTFetcher struct {
	baseURL  string
	token    string
	registry *export.Registry
	client   *http.Client
}

// NewRESTFetcher creates a fetcher for baseURL. serviceToken is sent when the
// request context carries no caller token.
func NewRESTFetcher(baseURL, serviceToken string, timeout time.Duration) *RESTFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTFetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    serviceToken,
		registry: export.Default,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the URL rows of dt are read from.
func (f *RESTFetcher) Endpoint(dt export.DataType) (string, error) {
	ds, err := f.registry.Lookup(dt)
	if err != nil {
		return "", err
	}
	return f.baseURL + "/" + ds.Endpoint, nil
}

func (f *RESTFetcher) FetchRows(ctx context.Context, dt export.DataType) ([]export.Record, error) {
	url, err := f.Endpoint(dt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if tok := f.bearer(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrUpstream, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: GET %s", ErrUnauthorized, url)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: GET %s returned %d: %s", ErrUpstream, url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	rows, err := DecodeRows(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return rows, nil
}

func (f *RESTFetcher) bearer(ctx context.Context) string {
	if tok := auth.TokenFromContext(ctx); tok != "" {
		return tok
	}
	return f.token
}
