package utils

import (
	"context"
	"io"
	"net/http"
)

// HTTPRequest sends a request through c with the given headers set. The
// caller closes the response body.
func HTTPRequest(ctx context.Context, c *http.Client, method string, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.Do(req)
}
