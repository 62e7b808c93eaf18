// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/parley/internal/auth"
	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/model"
)

// Configuration constants for the backend client.
const (
	// DefaultTimeout bounds a single HTTP exchange. Image generation and
	// document extraction are slow, so this is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxResponseBytes caps how much of a reply body is read.
	DefaultMaxResponseBytes = 10 << 20

	// DefaultRateLimit and DefaultBurst shape outgoing requests.
	DefaultRateLimit = 5.0
	DefaultBurst     = 10

	// HeaderRequestID carries the per-call correlation id.
	HeaderRequestID = "X-Request-ID"
)

// Version is reported in the User-Agent header. main overrides it.
var Version = "dev"

// Client talks to the assistant backend. It is safe for concurrent use.
type Client struct {
	http             *resty.Client
	tokens           auth.TokenSource
	limiter          *rate.Limiter
	maxResponseBytes int64
	log              *zap.Logger
}

// New creates a client for baseURL. tokens may be nil when only the public
// share endpoint is used.
func New(baseURL string, tokens auth.TokenSource) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "parley/"+Version),
		tokens:           tokens,
		limiter:          rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
		maxResponseBytes: DefaultMaxResponseBytes,
		log:              zap.NewNop(),
	}
	c.http.SetLogger(c.log.Sugar())
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.http.SetTimeout(d)
	}
	return c
}

// WithRateLimit sets the outgoing request rate (per second) and burst.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	if perSecond > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return c
}

// WithMaxResponseBytes sets the reply size limit.
func (c *Client) WithMaxResponseBytes(n int64) *Client {
	if n > 0 {
		c.maxResponseBytes = n
	}
	return c
}

// WithLogger sets the logger for request tracing.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	c.log = logging.OrNop(l).Named("api")
	c.http.SetLogger(c.log.Sugar())
	return c
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// request describes one backend call.
type request struct {
	method string
	path   string
	query  map[string]string
	body   any

	// form and files make the call multipart/form-data.
	form  map[string]string
	files []formFile

	// public calls go out without a bearer token.
	public bool
}

type formFile struct {
	param      string
	attachment model.Attachment
}

// reply is a fully read response.
type reply struct {
	status    int
	body      []byte
	requestID string
}

// send performs req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) send(ctx context.Context, req request, out any) error {
	token, err := c.token(ctx, req)
	if err != nil {
		return err
	}

	rep, err := c.attempt(ctx, req, token)
	if err != nil {
		return err
	}

	if rep.status == http.StatusUnauthorized && !req.public {
		c.log.Info("token rejected, refreshing", zap.String("path", req.path))
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		if rep, err = c.attempt(ctx, req, token); err != nil {
			return err
		}
	}

	return c.decode(rep, out)
}

func (c *Client) token(ctx context.Context, req request) (string, error) {
	if req.public {
		return "", nil
	}
	if c.tokens == nil {
		return "", fmt.Errorf("%w: no token configured", ErrUnauthorized)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return token, nil
}

// attempt performs one HTTP exchange and reads at most maxResponseBytes+1
// bytes of the body.
func (c *Client) attempt(ctx context.Context, req request, token string) (*reply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	requestID := uuid.NewString()
	r := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, requestID).
		SetDoNotParseResponse(true)
	if token != "" {
		r.SetAuthToken(token)
	}
	if len(req.query) > 0 {
		r.SetQueryParams(req.query)
	}
	switch {
	case len(req.files) > 0:
		r.SetMultipartFormData(req.form)
		for _, f := range req.files {
			r.SetMultipartField(f.param, f.attachment.Name, f.attachment.ContentType, bytes.NewReader(f.attachment.Data))
		}
	case req.body != nil:
		r.SetBody(req.body)
	}

	start := time.Now()
	resp, err := r.Execute(req.method, req.path)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}

	raw := resp.RawBody()
	defer raw.Close()
	body, err := io.ReadAll(io.LimitReader(raw, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.method, req.path, err)
	}

	c.log.Debug("request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", requestID))

	return &reply{status: resp.StatusCode(), body: body, requestID: requestID}, nil
}

func (c *Client) decode(rep *reply, out any) error {
	if int64(len(rep.body)) > c.maxResponseBytes {
		return fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, c.maxResponseBytes)
	}
	if rep.status < 200 || rep.status > 299 {
		return newAPIError(rep.status, rep.body, rep.requestID)
	}
	if out == nil || len(bytes.TrimSpace(rep.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(rep.body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
