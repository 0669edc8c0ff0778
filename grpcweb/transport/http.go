package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/qaforge/dashrpc/grpcweb/codec"
)

// DefaultMaxResponseBytes caps how much of a response body is buffered.
const DefaultMaxResponseBytes = 64 * 1024 * 1024

// ErrResponseTooLarge is returned when a body exceeds the configured cap.
var ErrResponseTooLarge = errors.New("response too large")

// HTTPTransport POSTs requests to {baseURL}{path}.
type HTTPTransport struct {
	baseURL          string
	client           *http.Client
	maxResponseBytes int64
}

type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets the client used for requests. The client is shared as
// given; no pooling is layered on top.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		t.client = c
	}
}

// WithMaxResponseBytes limits the buffered body size.
func WithMaxResponseBytes(n int64) HTTPOption {
	return func(t *HTTPTransport) {
		t.maxResponseBytes = n
	}
}

func NewHTTPTransport(baseURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		client:           http.DefaultClient,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BaseURL returns the URL prefix requests are sent to.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, req *codec.RequestEnvelope) (*Response, error) {
	url := t.baseURL + req.Path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "post %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read response of %s", url)
	}
	if int64(len(body)) > t.maxResponseBytes {
		return nil, errors.Wrapf(ErrResponseTooLarge, "response of %s exceeds %d bytes", url, t.maxResponseBytes)
	}

	headers := make(map[string]string, len(resp.Header))
	lowerKeys(resp.Header, headers)
	// Trailer values are only populated once the body has been read.
	lowerKeys(resp.Trailer, headers)

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       body,
	}, nil
}
