// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/parley/internal/apitest"
	"github.com/jeranaias/parley/internal/auth"
)

// rotatingSource hands out "token-N", advancing on every Refresh.
type rotatingSource struct {
	mu        sync.Mutex
	n         int
	refreshes int
	fail      bool
}

func (s *rotatingSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tokenName(s.n), nil
}

func (s *rotatingSource) Refresh(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.fail {
		return "", auth.ErrRefreshUnavailable
	}
	s.n++
	return tokenName(s.n), nil
}

func tokenName(n int) string {
	return "token-" + string(rune('0'+n))
}

func newTestClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	return New(srv.URL, auth.NewStaticSource("tok")), srv
}

func TestNewDefaults(t *testing.T) {
	c := New("http://example.test/", nil)
	assert.Equal(t, "http://example.test", c.BaseURL())
	assert.Equal(t, int64(DefaultMaxResponseBytes), c.maxResponseBytes)

	c.WithMaxResponseBytes(0).WithRateLimit(0, 0).WithTimeout(0)
	assert.Equal(t, int64(DefaultMaxResponseBytes), c.maxResponseBytes)
}

func TestRequestHeaders(t *testing.T) {
	c, srv := newTestClient(t)
	require.NoError(t, c.VerifyLogin(context.Background()))
	require.NoError(t, c.VerifyLogin(context.Background()))

	reqs := srv.Requests("GET /login")
	require.Len(t, reqs, 2)
	assert.Equal(t, "tok", reqs[0].Token)
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestUnauthorizedRefreshesOnce(t *testing.T) {
	srv := apitest.New(t)
	src := &rotatingSource{}
	c := New(srv.URL, src)

	srv.RejectNext(1)
	require.NoError(t, c.VerifyLogin(context.Background()))
	assert.Equal(t, 1, src.refreshes)
	reqs := srv.Requests("GET /login")
	require.Len(t, reqs, 2)
	assert.Equal(t, "token-0", reqs[0].Token)
	assert.Equal(t, "token-1", reqs[1].Token)

	srv.RejectNext(2)
	err := c.VerifyLogin(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, src.refreshes, "no second refresh for one call")

	src.fail = true
	srv.RejectNext(1)
	err = c.VerifyLogin(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, auth.ErrRefreshUnavailable)
}

func TestMissingTokenSource(t *testing.T) {
	srv := apitest.New(t)
	err := New(srv.URL, nil).VerifyLogin(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 0, srv.Calls("GET /login"))

	err = New(srv.URL, auth.NewStaticSource("")).VerifyLogin(context.Background())
	assert.ErrorIs(t, err, auth.ErrNoToken)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusBadGateway, ErrServer},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c, srv := newTestClient(t)
			srv.Fail("GET /api/chats", tc.status, "boom", 1)

			_, err := c.ListRoster(context.Background(), "u1", 1, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "boom", apiErr.Message)
			assert.NotEmpty(t, apiErr.RequestID)
		})
	}
}

func TestNewAPIErrorBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string error", `{"error":"bad thing"}`, "bad thing"},
		{"nested error", `{"error":{"message":"nested"}}`, "nested"},
		{"message field", `{"message":"msg"}`, "msg"},
		{"plain text", "upstream exploded", "upstream exploded"},
		{"empty", "", "Bad Gateway"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newAPIError(http.StatusBadGateway, []byte(tc.body), "rid")
			assert.Equal(t, tc.want, e.Message)
		})
	}
}

func TestResponseLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/big":
			_, _ = w.Write([]byte(`{"response":"` + strings.Repeat("x", 4096) + `"}`))
		default:
			_, _ = w.Write([]byte("<html>not json</html>"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, auth.NewStaticSource("tok")).WithMaxResponseBytes(1024)
	var out GenerateResponse
	err := c.send(context.Background(), request{method: http.MethodGet, path: "/big"}, &out)
	assert.ErrorIs(t, err, ErrResponseTooLarge)

	err = c.send(context.Background(), request{method: http.MethodGet, path: "/html"}, &out)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c, _ := newTestClient(t)
	c.WithRateLimit(0.01, 1)
	require.NoError(t, c.VerifyLogin(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.VerifyLogin(ctx)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestTimestampFormats(t *testing.T) {
	tests := []struct {
		in   string
		zero bool
	}{
		{`"2024-05-01T12:30:00.123456"`, false},
		{`"2024-05-01T12:30:00"`, false},
		{`"2024-05-01T12:30:00Z"`, false},
		{`"2024-05-01T12:30:00.5+02:00"`, false},
		{`"Wed, 01 May 2024 12:30:00 GMT"`, false},
		{`null`, true},
		{`"yesterday"`, true},
		{`12345`, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, ts.UnmarshalJSON([]byte(tc.in)))
			assert.Equal(t, tc.zero, ts.IsZero())
			if !tc.zero {
				assert.Equal(t, 2024, ts.Year())
				assert.Equal(t, 30, ts.Minute())
			}
		})
	}
}
