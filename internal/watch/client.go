package watch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"time"

	"github.com/funnyzak/reqwatch/internal/config"
	"github.com/funnyzak/reqwatch/pkg/capture"
)

// maxSnapshotBytes bounds a pulled snapshot.
const maxSnapshotBytes = 64 << 20

// Client talks to the pull and clear endpoints of the capture server.
type Client struct {
	http        *http.Client
	requestsURL string
	clearURL    string
}

// NewClient builds a client for the configured server. A nil httpClient uses
// one with the configured timeout.
func NewClient(cfg config.ServerConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		http:        httpClient,
		requestsURL: cfg.Endpoint(cfg.RequestsPath),
		clearURL:    cfg.Endpoint(cfg.ClearPath),
	}
}

// Fetch pulls the captured requests whose url equals filter, or all of them
// when filter is empty. The result is ordered oldest first whatever order the
// server used.
func (c *Client) Fetch(ctx context.Context, filter string) ([]capture.Request, error) {
	endpoint, err := url.Parse(c.requestsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid requests endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("url", filter)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull requests: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: "requests", Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	list, err := capture.DecodeList(body)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	SortChronological(list)
	return list, nil
}

// Clear asks the server to purge every captured request. Success only means
// the server accepted the call; the purge itself arrives as a clear event.
func (c *Client) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.clearURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clear requests: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: "clear", Code: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx answer from the capture server.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s endpoint returned %d %s", e.Endpoint, e.Code, http.StatusText(e.Code))
}

// SortChronological orders requests by timestamp, oldest first; ties keep
// their relative order. The pull endpoint answers newest first, so when any
// timestamp cannot be parsed the list is reversed as a whole instead.
func SortChronological(list []capture.Request) {
	times := make([]time.Time, len(list))
	for i, r := range list {
		times[i] = r.Time()
		if times[i].IsZero() {
			slices.Reverse(list)
			return
		}
	}
	sort.Stable(byTime{list: list, times: times})
}

type byTime struct {
	list  []capture.Request
	times []time.Time
}

func (b byTime) Len() int           { return len(b.list) }
func (b byTime) Less(i, j int) bool { return b.times[i].Before(b.times[j]) }
func (b byTime) Swap(i, j int) {
	b.list[i], b.list[j] = b.list[j], b.list[i]
	b.times[i], b.times[j] = b.times[j], b.times[i]
}
