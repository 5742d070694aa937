package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/clinicore/clinicore/internal/config"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
)

// Request is one outbound call to a payment gateway
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// BasicAuth credentials, used when Username is non-empty
	Username string
	Password string
	Body     []byte
}

// Response is the raw gateway response
type Response struct {
	StatusCode int
	Body       []byte
}

// Client makes outbound HTTP calls to payment gateways. Every call carries
// an explicit timeout; timeouts and 5xx responses are marked as gateway
// errors so callers can treat them as transient.
type Client interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

type httpClient struct {
	client *retryablehttp.Client
	logger *logger.Logger
}

// NewClient builds the shared outbound gateway client
func NewClient(cfg *config.Configuration, logger *logger.Logger) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Gateway.RetryMax
	rc.HTTPClient.Timeout = cfg.Gateway.RequestTimeout
	rc.Logger = nil
	return &httpClient{client: rc, logger: logger}
}

func (c *httpClient) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to build gateway request").
			Mark(ierr.ErrGateway)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Username != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Errorw("gateway request failed",
			"method", req.Method,
			"url", req.URL,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrGateway)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to read gateway response").
			Mark(ierr.ErrGateway)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, ierr.NewError("gateway returned server error").
			WithHintf("Gateway responded with status %d", resp.StatusCode).
			WithReportableDetails(map[string]any{"status": resp.StatusCode}).
			Mark(ierr.ErrGateway)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
