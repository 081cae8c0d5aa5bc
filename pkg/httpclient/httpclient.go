// Package httpclient wraps outbound HTTP behind a narrow interface so
// fetchers can be tested against fakes.
package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response exposes the parts of an HTTP response the fetch path reads.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client performs bounded GET requests.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

type restyClient struct {
	c *resty.Client
}

type restyResponse struct {
	r *resty.Response
}

func (r restyResponse) StatusCode() int { return r.r.StatusCode() }
func (r restyResponse) Body() []byte    { return r.r.Body() }

// NewRestyClient builds a Client with the given per-request timeout.
func NewRestyClient(timeout time.Duration) Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &restyClient{c: c}
}

// Get issues a GET with the provided headers. Non-2xx responses are returned
// to the caller for inspection, not treated as errors here.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := c.c.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return restyResponse{r: resp}, nil
}
