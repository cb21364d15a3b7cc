// internal/poller/fetch.go
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tamzrod/modbus-viewer/internal/device"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// Fetcher performs exactly one authenticated request per call.
type Fetcher interface {
	Fetch(ctx context.Context, cfg ConnectionConfig) (device.Payload, error)
}

// HTTPFetcher is the Fetcher used by the dashboards.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch issues GET {cfg.URL()} with "Authorization: Token {token}".
// Shape is parsed permissively: missing fields stay empty, unknown ones are ignored.
func (f *HTTPFetcher) Fetch(ctx context.Context, cfg ConnectionConfig) (device.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL(), nil)
	if err != nil {
		return device.Payload{}, &FetchError{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Token "+cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return device.Payload{}, &FetchError{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return device.Payload{}, &FetchError{Kind: KindAuthOrServer, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return device.Payload{}, &FetchError{Kind: KindNetwork, Err: err}
	}

	var p *device.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return device.Payload{}, &FetchError{Kind: KindParse, Err: err}
	}
	if p == nil {
		return device.Payload{}, &FetchError{Kind: KindParse, Err: errors.New("null body")}
	}

	return *p, nil
}
