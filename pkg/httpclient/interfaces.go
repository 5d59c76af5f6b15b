package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header(key string) string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// Paths are resolved against the base URL the client was built with.
type Client interface {
	Get(ctx context.Context, path string, query map[string]string) (Response, error)
	Post(ctx context.Context, path string, body any) (Response, error)
}
