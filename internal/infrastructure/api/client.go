// Package api binds the remote shop endpoints to the application's outbound
// ports. All traffic flows through the session guard round tripper.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/richclaudfelixjp/storefront/internal/domain/session"
	"github.com/richclaudfelixjp/storefront/internal/observability"
)

type Client struct {
	base       *url.URL
	httpClient *http.Client
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

// NewClient builds the REST client. onInvalidate is called exactly once per
// held session when the guard observes an invalidating response; the shell
// wires it to the login redirect.
func NewClient(
	baseURL string,
	timeout time.Duration,
	sessions domain.Store,
	onInvalidate func(),
	tel observability.Observability,
) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newSessionGuard(http.DefaultTransport, sessions, onInvalidate, tel),
		},
		log:        logger.With(observability.F("component", "api_client")),
		reqCounter: metrics.Counter(observability.MAPIRequests),
		durHist:    metrics.Histogram(observability.MAPIRequestDuration),
	}, nil
}

// call describes one exchange. Endpoint is the low-cardinality label used for
// metrics and error reporting; Path carries the concrete identifiers.
type call struct {
	Method   string
	Endpoint string
	Path     string
	Query    url.Values
	Body     any
	Out      any
}

func (c *Client) do(ctx context.Context, req call) error {
	if req.Path == loginPath {
		ctx = markLoginCall(ctx)
	}

	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + req.Path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("api: marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	return c.execute(httpReq, req.Endpoint, req.Out)
}

// Upload sends one file as multipart form data. Used by the admin image
// upload contract; shares the session guard like everything else.
func (c *Client) Upload(ctx context.Context, endpoint, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("api: multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("api: multipart copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("api: multipart close: %w", err)
	}

	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &buf)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	return c.execute(httpReq, endpoint, out)
}

func (c *Client) execute(req *http.Request, endpoint string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	outcome := "success"
	defer func() {
		c.reqCounter.Add(1,
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.durHist.Observe(time.Since(start).Seconds(),
			observability.L("endpoint", endpoint),
		)
	}()

	if err != nil {
		outcome = "network_error"
		c.log.Warn("api_transport_failure",
			observability.F("endpoint", endpoint),
			observability.F("error", err.Error()),
		)
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if unauthorized(resp.StatusCode) && !isLoginCall(req) {
		outcome = "session_expired"
		return &Error{Status: resp.StatusCode, Endpoint: endpoint, Err: ErrSessionExpired}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "network_error"
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("%w: read body: %w", ErrNetwork, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "error"
		return &Error{
			Status:   resp.StatusCode,
			Message:  serverMessage(raw),
			Endpoint: endpoint,
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			// Some endpoints answer with bare text (registration, for one).
			if s, ok := out.(*string); ok {
				*s = strings.TrimSpace(string(raw))
				return nil
			}
			outcome = "decode_error"
			return &Error{Status: resp.StatusCode, Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// serverMessage pulls the human message out of an error payload. The API is
// inconsistent here: some endpoints send {"message": ...}, some {"error": ...},
// registration sends a bare string.
func serverMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	return strings.TrimSpace(string(raw))
}
