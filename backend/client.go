// Package backend talks to the graph platform: graph upload, server-side
// search, filter and reset, visualizer rendering and console execution.
//
// Every failure is normalized to a short human-readable message carried by a
// grapherror.GraphError, so callers can show it without inspecting HTTP
// details.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/graphex/errors"
	grapherror "github.com/teranos/graphex/graph/error"
	"github.com/teranos/graphex/internal/httpclient"
	"github.com/teranos/graphex/logger"
	"github.com/teranos/graphex/version"
)

// Default collaborator paths.
const (
	DefaultLoadPath    = "/api/graph/load/"
	DefaultSearchPath  = "/api/graph/search/"
	DefaultFilterPath  = "/api/graph/filter/"
	DefaultResetPath   = "/api/workspace/reset/"
	DefaultRenderPath  = "/api/render/"
	DefaultConsolePath = "/api/cli/execute/"
)

// maxBody bounds how much of a response is read.
const maxBody = 64 << 20

var userAgent = version.Get().UserAgent()

// Endpoints are the collaborator paths relative to the base URL.
type Endpoints struct {
	Load    string
	Search  string
	Filter  string
	Reset   string
	Render  string
	Console string
}

// DefaultEndpoints returns the standard paths.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Load:    DefaultLoadPath,
		Search:  DefaultSearchPath,
		Filter:  DefaultFilterPath,
		Reset:   DefaultResetPath,
		Render:  DefaultRenderPath,
		Console: DefaultConsolePath,
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	for _, p := range []struct{ v, def *string }{
		{&e.Load, &d.Load}, {&e.Search, &d.Search}, {&e.Filter, &d.Filter},
		{&e.Reset, &d.Reset}, {&e.Render, &d.Render}, {&e.Console, &d.Console},
	} {
		if *p.v == "" {
			*p.v = *p.def
		}
	}
	return e
}

// Options configure a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests; zero or less disables it.
	RequestsPerSecond float64
	BlockPrivateIP    bool
	Endpoints         Endpoints
	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client calls the backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *httpclient.SaferClient
	limiter *rate.Limiter
	ep      Endpoints
	log     *zap.SugaredLogger
}

// New validates the base URL and returns a Client.
func New(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	hc := httpclient.New(opts.Timeout, httpclient.Options{BlockPrivateIP: opts.BlockPrivateIP})
	if opts.HTTPClient != nil {
		hc = httpclient.WrapClient(opts.HTTPClient)
	}

	base, err := hc.ValidateURL(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "backend base URL %q", opts.BaseURL)
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return &Client{
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		ep:      opts.Endpoints.withDefaults(),
		log:     logger.OrNop(opts.Logger),
	}, nil
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) resolve(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// response is a completed exchange.
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do sends req after waiting for the limiter. A nil response means the
// request never completed.
func (c *Client) do(ctx context.Context, req *http.Request) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		c.log.Warnw("backend request failed",
			logger.FieldRequestID, requestID,
			logger.FieldEndpoint, req.URL.Path,
			logger.FieldError, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	c.log.Debugw("backend request",
		logger.FieldRequestID, requestID,
		logger.FieldEndpoint, req.URL.Path,
		logger.FieldStatus, resp.StatusCode,
		logger.FieldSize, len(body),
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	return &response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequest(http.MethodPost, c.resolve(path, nil), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req)
}

func (c *Client) postFile(ctx context.Context, path, filename string, data []byte) (*response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "build upload")
	}
	if _, err := part.Write(data); err != nil {
		return nil, errors.Wrap(err, "build upload")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "build upload")
	}

	req, err := http.NewRequest(http.MethodPost, c.resolve(path, nil), &buf)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(ctx, req)
}

func transportError(err error, msg string) *grapherror.GraphError {
	return grapherror.New(grapherror.CategoryTransport, errors.Mark(err, errors.ErrTransport), msg).
		WithSubcategory(grapherror.SubcategoryTransportNetwork)
}
