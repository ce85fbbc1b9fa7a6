package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"
)

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error. status code: %d, url: %s", e.StatusCode, e.URL)
}

// HTTPClient fetches whole response bodies with gorequest. Redirects are followed.
type HTTPClient struct {
	Timeout time.Duration
	Header  map[string]string
}

func NewHTTPClient(timeout time.Duration, header map[string]string) HTTPClient {
	return HTTPClient{
		Timeout: timeout,
		Header:  header,
	}
}

// Fetch returns HTTP response body
func (c HTTPClient) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, xerrors.Errorf("request canceled: %w", err)
	}

	req := gorequest.New().Get(url)
	if c.Timeout > 0 {
		req = req.Timeout(c.Timeout)
	}
	for k, v := range c.Header {
		req = req.Set(k, v)
	}

	resp, body, errs := req.EndBytes()
	if len(errs) > 0 {
		return nil, xerrors.Errorf("HTTP error. url: %s, err: %w", url, errs[0])
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return body, nil
}
