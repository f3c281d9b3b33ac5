package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/minisource/heartbeat/internal/models"
)

const (
	userAgent = "Minisource-Heartbeat/1.0"

	// Stored response bodies are cut at this length; ResponseSizeBytes keeps
	// the real length.
	maxStoredBody = 10000
)

// ExecutionResult is the classified outcome of one request.
type ExecutionResult struct {
	Status            models.RunStatus
	StatusCode        *int
	LatencyMS         float64
	ResponseSizeBytes *int64
	ErrorMessage      *string
	ErrorType         *models.ErrorType
	ResponseHeaders   models.HeaderMap
	ResponseBody      *string
}

// Executor issues HTTP requests against targets on a shared pooled client.
type Executor struct {
	config *config.HTTPClientConfig
	client *http.Client
}

// NewExecutor creates a new executor. A nil client builds one from the
// config: dial timeout, total timeout, capped connection pool, redirects
// surfaced instead of followed.
func NewExecutor(cfg *config.HTTPClientConfig, client *http.Client) *Executor {
	if client == nil {
		client = &http.Client{
			Timeout: cfg.DefaultTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
				MaxConnsPerHost:     cfg.MaxConns,
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConns,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Executor{
		config: cfg,
		client: client,
	}
}

// Execute issues one request to the target and classifies the outcome. It
// never returns an error: failures are part of the result.
func (e *Executor) Execute(ctx context.Context, target *models.Target) *ExecutionResult {
	start := time.Now()

	req, err := e.buildRequest(ctx, target)
	if err != nil {
		return failedResult(models.RunStatusFailed, models.ErrorTypeUnknown, err.Error(), time.Since(start))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		status, errType := classifyError(err)
		return failedResult(status, errType, err.Error(), time.Since(start))
	}
	defer resp.Body.Close()

	// Read the full body so latency covers the complete exchange and the
	// stored size reflects the real payload.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		status, errType := classifyError(err)
		return failedResult(status, errType, err.Error(), time.Since(start))
	}

	latency := latencyMS(time.Since(start))
	code := resp.StatusCode
	size := int64(len(body))

	stored := string(body)
	if len(stored) > maxStoredBody {
		stored = stored[:maxStoredBody]
	}

	result := &ExecutionResult{
		StatusCode:        &code,
		LatencyMS:         latency,
		ResponseSizeBytes: &size,
		ResponseHeaders:   flattenHeaders(resp.Header),
		ResponseBody:      &stored,
	}

	switch {
	case code >= 200 && code < 300:
		result.Status = models.RunStatusSuccess
	case code >= 400 && code < 500:
		setFailure(result, models.ErrorTypeHTTP4xx, fmt.Sprintf("HTTP %d", code))
	case code >= 500:
		setFailure(result, models.ErrorTypeHTTP5xx, fmt.Sprintf("HTTP %d", code))
	default:
		setFailure(result, models.ErrorTypeHTTPUnexpected, fmt.Sprintf("HTTP %d", code))
	}

	return result
}

// buildRequest builds the HTTP request for a target. Bodies are only sent
// for POST, PUT and PATCH; a body that parses as JSON gets an implicit
// Content-Type unless the target supplies its own.
func (e *Executor) buildRequest(ctx context.Context, target *models.Target) (*http.Request, error) {
	var body io.Reader
	sendJSON := false

	if target.Body != nil && methodTakesBody(target.Method) {
		raw := []byte(*target.Body)
		body = bytes.NewReader(raw)
		sendJSON = json.Valid(raw)
	}

	req, err := http.NewRequestWithContext(ctx, target.Method, target.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}

	if sendJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func methodTakesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// classifyError maps a transport error to a run status and error type.
// Timeouts win over DNS failures, DNS over connection errors.
func classifyError(err error) (models.RunStatus, models.ErrorType) {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.RunStatusTimeout, models.ErrorTypeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.RunStatusTimeout, models.ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.RunStatusDNSError, models.ErrorTypeDNS
	}

	// Resolver messages differ in casing across libc implementations.
	msg := strings.ToLower(err.Error())
	for _, token := range []string{
		"no such host",
		"name or service not known",
		"nodename nor servname provided",
	} {
		if strings.Contains(msg, token) {
			return models.RunStatusDNSError, models.ErrorTypeDNS
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return models.RunStatusConnectionError, models.ErrorTypeConnection
	}
	for _, token := range []string{"connection refused", "connection reset"} {
		if strings.Contains(msg, token) {
			return models.RunStatusConnectionError, models.ErrorTypeConnection
		}
	}

	return models.RunStatusFailed, models.ErrorTypeUnknown
}

// flattenHeaders joins multi-valued headers into single strings.
func flattenHeaders(h http.Header) models.HeaderMap {
	if len(h) == 0 {
		return nil
	}
	m := make(models.HeaderMap, len(h))
	for key, values := range h {
		m[key] = strings.Join(values, ", ")
	}
	return m
}

func failedResult(status models.RunStatus, errType models.ErrorType, message string, elapsed time.Duration) *ExecutionResult {
	return &ExecutionResult{
		Status:       status,
		LatencyMS:    latencyMS(elapsed),
		ErrorMessage: &message,
		ErrorType:    &errType,
	}
}

func setFailure(result *ExecutionResult, errType models.ErrorType, message string) {
	result.Status = models.RunStatusFailed
	result.ErrorType = &errType
	result.ErrorMessage = &message
}

func latencyMS(elapsed time.Duration) float64 {
	return float64(elapsed.Microseconds()) / 1000.0
}
