package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

const contentTypeJSON = "application/json"

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a RestyClient bound to baseURL. A zero timeout leaves requests
// bounded only by the caller's context.
func NewRestyClient(baseURL string, timeout time.Duration) *RestyClient {
	c := NewRestyHTTPClient(timeout)
	c.SetBaseURL(baseURL)
	c.SetHeader("Content-Type", contentTypeJSON)
	c.SetHeader("Accept", contentTypeJSON)
	return &RestyClient{client: c}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	// one request per call
	c.SetRetryCount(0)
	return c
}

// Get performs an HTTP GET request with the given query parameters.
func (r *RestyClient) Get(ctx context.Context, path string, query map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Post performs an HTTP POST request with body encoded as JSON.
func (r *RestyClient) Post(ctx context.Context, path string, body any) (Response, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeJSON).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte             { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int          { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header(key string) string { return r.resp.Header().Get(key) }
