// Package netx provides the HTTP transport used by the offline core: direct
// submissions, queued-item replay, and the connectivity probe all go through
// the Transport interface so tests can substitute a fake network.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/justicebus/offlinesync/internal/common"
)

// Transport performs one HTTP exchange. Any 2xx response is success and the
// response body is returned; anything else (including transport errors) is an
// error matching common.ErrReplayFailed.
type Transport interface {
	Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error)
}

// Client is the production Transport over net/http. Relative paths are
// resolved against the configured base URL.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	if strings.HasPrefix(url, "/") {
		url = c.base + url
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, errors.Join(common.ErrReplayFailed, err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s %s: %w", method, url, errors.Join(common.ErrReplayFailed, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: status %s: %w", method, url, resp.Status, common.ErrReplayFailed)
	}
	return b, nil
}
