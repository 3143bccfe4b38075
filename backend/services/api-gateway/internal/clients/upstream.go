package clients

import (
	"context"
	"io"
	"net/http"
)

// forwardedHeaders are copied from the inbound request to the upstream call.
var forwardedHeaders = []string{"Authorization", "Content-Type", "Accept", "X-Request-ID"}

// Upstream forwards gateway requests to one backend service.
type Upstream struct {
	name string
	base *BaseClient
}

// NewUpstream returns client for the service at baseURL.
func NewUpstream(name, baseURL string, httpClient HTTPDoer) *Upstream {
	return &Upstream{name: name, base: NewBaseClient(baseURL, httpClient)}
}

// Name identifies the upstream in logs and error bodies.
func (u *Upstream) Name() string {
	return u.name
}

// Forward replays r against path on the upstream.
func (u *Upstream) Forward(ctx context.Context, r *http.Request, path string) (*Response, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			return nil, err
		}
	}
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	headers := make(http.Header, len(forwardedHeaders))
	for _, h := range forwardedHeaders {
		if v := r.Header.Values(h); len(v) > 0 {
			headers[h] = v
		}
	}
	return u.base.Do(ctx, r.Method, path, body, headers)
}
