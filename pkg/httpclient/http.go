package httpclient

import (
	"context"
	"net/http"
)

type BaseResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// HTTPClient issues a single outbound request with an arbitrary method. The body is
// ignored for GET requests.
type HTTPClient interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body interface{}) (*BaseResponse, error)
}
