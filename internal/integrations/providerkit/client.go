package providerkit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/SprintLogistics/sptms/internal/errs"
)

const (
	defaultTimeout = 30 * time.Second

	// One retry, and only for faults that might be transient. Client
	// errors are the caller's problem and are never retried.
	maxAttempts = 2

	maxErrorBody = 2 << 10
)

// Client is the HTTP transport shared by the provider adapters. All
// failures come back as IntegrationError so callers can tell "provider
// broken" from "provider returned no data".
type Client struct {
	provider string
	hc       *http.Client
}

func NewClient(provider string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		provider: provider,
		hc:       &http.Client{Timeout: timeout},
	}
}

// Request describes one provider call. Body is JSON-encoded; Form wins
// over Body when both are set (token endpoints are form-encoded).
type Request struct {
	Method string
	URL    string
	Header http.Header

	Body any
	Form url.Values

	BasicUser string
	BasicPass string
}

// Do executes the request, retrying once on transport failure or a 5xx
// answer. On 2xx the response body is decoded into out when non-nil.
func (c *Client) Do(ctx context.Context, op string, r Request, out any) error {
	var lastErr error
	var lastStatus int
	var lastBody []byte

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := c.build(ctx, r)
		if err != nil {
			return err
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			lastStatus = 0
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = nil
			lastStatus = resp.StatusCode
			lastBody = body
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return errs.Integration(c.provider, op, resp.StatusCode, trim(body), nil)
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return errs.Integration(c.provider, op, resp.StatusCode, "undecodable response body",
					errors.Wrap(err, "decode response"))
			}
		}
		return nil
	}

	return errs.Integration(c.provider, op, lastStatus, trim(lastBody), lastErr)
}

func (c *Client) build(ctx context.Context, r Request) (*http.Request, error) {
	var body io.Reader
	contentType := ""
	switch {
	case r.Form != nil:
		body = strings.NewReader(r.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.Body != nil:
		raw, err := json.Marshal(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if r.BasicUser != "" || r.BasicPass != "" {
		req.SetBasicAuth(r.BasicUser, r.BasicPass)
	}
	return req, nil
}

func trim(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
