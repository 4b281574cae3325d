package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client *resty.Client
}

func New(timeout time.Duration) HTTPClient {
	client := resty.New().
		SetTimeout(timeout).
		// Non-2xx responses are classified by the caller, not retried here.
		SetRetryCount(0)

	return &RestyClient{client: client}
}

func (rc *RestyClient) Do(ctx context.Context, method, url string, headers map[string]string, body interface{}) (*BaseResponse, error) {
	req := rc.client.R().SetContext(ctx)

	if headers != nil {
		req.SetHeaders(headers)
	}

	if body != nil && method != http.MethodGet {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}

	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}, nil
}
