package scheduler

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/minisource/heartbeat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(client *http.Client) *Executor {
	return NewExecutor(&config.HTTPClientConfig{
		DefaultTimeout: 5 * time.Second,
		ConnectTimeout: 2 * time.Second,
		MaxConns:       10,
		MaxIdleConns:   5,
	}, client)
}

// TestExecuteSuccess tests a 2xx exchange
func TestExecuteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Build", "42")
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	result := newTestExecutor(nil).Execute(context.Background(), &models.Target{
		URL:    server.URL,
		Method: "GET",
	})

	assert.Equal(t, models.RunStatusSuccess, result.Status)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, 200, *result.StatusCode)
	assert.Greater(t, result.LatencyMS, 0.0)
	require.NotNil(t, result.ResponseSizeBytes)
	assert.Equal(t, int64(11), *result.ResponseSizeBytes)
	require.NotNil(t, result.ResponseBody)
	assert.Equal(t, `{"ok":true}`, *result.ResponseBody)
	assert.Equal(t, "42", result.ResponseHeaders["X-Build"])
	assert.Equal(t, "a=1, b=2", result.ResponseHeaders["Set-Cookie"])
	assert.Nil(t, result.ErrorMessage)
	assert.Nil(t, result.ErrorType)
}

// TestExecuteHTTPFailures tests non-2xx classification
func TestExecuteHTTPFailures(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		wantType    models.ErrorType
		wantMessage string
	}{
		{"Client Error", http.StatusNotFound, models.ErrorTypeHTTP4xx, "HTTP 404"},
		{"Server Error", http.StatusServiceUnavailable, models.ErrorTypeHTTP5xx, "HTTP 503"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer server.Close()

			result := newTestExecutor(nil).Execute(context.Background(), &models.Target{
				URL:    server.URL,
				Method: "GET",
			})

			assert.Equal(t, models.RunStatusFailed, result.Status)
			require.NotNil(t, result.StatusCode)
			assert.Equal(t, tc.status, *result.StatusCode)
			require.NotNil(t, result.ErrorType)
			assert.Equal(t, tc.wantType, *result.ErrorType)
			require.NotNil(t, result.ErrorMessage)
			assert.Equal(t, tc.wantMessage, *result.ErrorMessage)
			require.NotNil(t, result.ResponseBody)
			assert.Equal(t, "nope", *result.ResponseBody)
		})
	}
}

// TestExecuteRedirectNotFollowed tests that 3xx responses are surfaced
func TestExecuteRedirectNotFollowed(t *testing.T) {
	var followed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/elsewhere" {
			followed = true
			return
		}
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	result := newTestExecutor(nil).Execute(context.Background(), &models.Target{
		URL:    server.URL,
		Method: "GET",
	})

	assert.False(t, followed)
	assert.Equal(t, models.RunStatusFailed, result.Status)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, http.StatusFound, *result.StatusCode)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeHTTPUnexpected, *result.ErrorType)
	require.NotNil(t, result.ErrorMessage)
	assert.Equal(t, "HTTP 302", *result.ErrorMessage)
}

// TestExecuteTimeout tests the client deadline turning into a TIMEOUT run
func TestExecuteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	result := newTestExecutor(&http.Client{Timeout: 50 * time.Millisecond}).Execute(context.Background(), &models.Target{
		URL:    server.URL,
		Method: "GET",
	})

	assert.Equal(t, models.RunStatusTimeout, result.Status)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeTimeout, *result.ErrorType)
	assert.Nil(t, result.StatusCode)
	assert.Greater(t, result.LatencyMS, 0.0)
}

// TestExecuteConnectionRefused tests a dead endpoint
func TestExecuteConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	result := newTestExecutor(nil).Execute(context.Background(), &models.Target{
		URL:    "http://" + addr,
		Method: "GET",
	})

	assert.Equal(t, models.RunStatusConnectionError, result.Status)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeConnection, *result.ErrorType)
	require.NotNil(t, result.ErrorMessage)
}

// TestExecuteRequestShape tests how target fields turn into a request
func TestExecuteRequestShape(t *testing.T) {
	type seen struct {
		method      string
		contentType string
		userAgent   string
		custom      string
		body        string
	}

	var got seen
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = seen{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			userAgent:   r.Header.Get("User-Agent"),
			custom:      r.Header.Get("X-Probe"),
			body:        string(body),
		}
	}))
	defer server.Close()

	executor := newTestExecutor(nil)

	t.Run("JSON Body Gets Implicit Content-Type", func(t *testing.T) {
		body := `{"ping":1}`
		executor.Execute(context.Background(), &models.Target{
			URL:     server.URL,
			Method:  "POST",
			Body:    &body,
			Headers: models.HeaderMap{"X-Probe": "yes"},
		})

		assert.Equal(t, "POST", got.method)
		assert.Equal(t, "application/json", got.contentType)
		assert.Equal(t, "Minisource-Heartbeat/1.0", got.userAgent)
		assert.Equal(t, "yes", got.custom)
		assert.Equal(t, body, got.body)
	})

	t.Run("Supplied Content-Type Wins", func(t *testing.T) {
		body := `{"ping":1}`
		executor.Execute(context.Background(), &models.Target{
			URL:     server.URL,
			Method:  "PUT",
			Body:    &body,
			Headers: models.HeaderMap{"Content-Type": "application/vnd.custom+json"},
		})

		assert.Equal(t, "application/vnd.custom+json", got.contentType)
	})

	t.Run("Non-JSON Body Stays Untyped", func(t *testing.T) {
		body := "plain text probe"
		executor.Execute(context.Background(), &models.Target{
			URL:    server.URL,
			Method: "PATCH",
			Body:   &body,
		})

		assert.Empty(t, got.contentType)
		assert.Equal(t, body, got.body)
	})

	t.Run("GET Drops The Body", func(t *testing.T) {
		body := `{"ping":1}`
		executor.Execute(context.Background(), &models.Target{
			URL:    server.URL,
			Method: "GET",
			Body:   &body,
		})

		assert.Equal(t, "GET", got.method)
		assert.Empty(t, got.body)
	})
}

// TestExecuteBodyTruncation tests that stored bodies are cut while the size
// keeps the real length
func TestExecuteBodyTruncation(t *testing.T) {
	payload := strings.Repeat("x", 15360)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	result := newTestExecutor(nil).Execute(context.Background(), &models.Target{
		URL:    server.URL,
		Method: "GET",
	})

	assert.Equal(t, models.RunStatusSuccess, result.Status)
	require.NotNil(t, result.ResponseSizeBytes)
	assert.Equal(t, int64(15360), *result.ResponseSizeBytes)
	require.NotNil(t, result.ResponseBody)
	assert.Len(t, *result.ResponseBody, maxStoredBody)
}

// TestExecuteBadTarget tests an unbuildable request
func TestExecuteBadTarget(t *testing.T) {
	result := newTestExecutor(nil).Execute(context.Background(), &models.Target{
		URL:    "http://example.com\x7f",
		Method: "GET",
	})

	assert.Equal(t, models.RunStatusFailed, result.Status)
	require.NotNil(t, result.ErrorType)
	assert.Equal(t, models.ErrorTypeUnknown, *result.ErrorType)
}

// TestClassifyError tests the transport error taxonomy
func TestClassifyError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus models.RunStatus
		wantType   models.ErrorType
	}{
		{
			"Context Deadline",
			context.DeadlineExceeded,
			models.RunStatusTimeout, models.ErrorTypeTimeout,
		},
		{
			"Timeout Beats DNS",
			&net.DNSError{Err: "i/o timeout", Name: "example.com", IsTimeout: true},
			models.RunStatusTimeout, models.ErrorTypeTimeout,
		},
		{
			"DNS Error Value",
			&net.DNSError{Err: "no such host", Name: "nowhere.invalid"},
			models.RunStatusDNSError, models.ErrorTypeDNS,
		},
		{
			"DNS Token Match",
			errors.New("dial tcp: lookup nowhere.invalid: Name or service not known"),
			models.RunStatusDNSError, models.ErrorTypeDNS,
		},
		{
			"Connection Refused Errno",
			&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			models.RunStatusConnectionError, models.ErrorTypeConnection,
		},
		{
			"Connection Reset Token",
			errors.New("read tcp 127.0.0.1:80: connection reset by peer"),
			models.RunStatusConnectionError, models.ErrorTypeConnection,
		},
		{
			"Host Unreachable",
			&net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH},
			models.RunStatusConnectionError, models.ErrorTypeConnection,
		},
		{
			"Anything Else",
			errors.New("tls: handshake failure"),
			models.RunStatusFailed, models.ErrorTypeUnknown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, errType := classifyError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, errType)
		})
	}
}

// TestFlattenHeaders tests multi-value header joining
func TestFlattenHeaders(t *testing.T) {
	assert.Nil(t, flattenHeaders(nil))
	assert.Nil(t, flattenHeaders(http.Header{}))

	flat := flattenHeaders(http.Header{
		"Accept":   {"text/html", "application/json"},
		"X-Single": {"one"},
	})
	assert.Equal(t, "text/html, application/json", flat["Accept"])
	assert.Equal(t, "one", flat["X-Single"])
}
