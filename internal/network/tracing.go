package network

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxTracedBody caps how much of a body is copied into a log entry.
const maxTracedBody = 2048

// TracingTransport logs each exchange at debug level, including a
// truncated copy of the request and response bodies.
type TracingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

// NewTracingTransport wraps next.
func NewTracingTransport(next http.RoundTripper, logger *zap.Logger) *TracingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TracingTransport{next: next, logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *TracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.logger.Core().Enabled(zap.DebugLevel) {
		return t.next.RoundTrip(req)
	}

	var reqBody []byte
	if req.Body != nil && req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			reqBody, _ = io.ReadAll(io.LimitReader(rc, maxTracedBody))
			_ = rc.Close()
		}
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Duration("elapsed", time.Since(start)),
		zap.ByteString("request_body", reqBody),
	}
	if err != nil {
		t.logger.Debug("HTTP exchange failed.", append(fields, zap.Error(err))...)
		return nil, err
	}

	full, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(full))
	if readErr != nil {
		t.logger.Debug("HTTP response body unreadable.", append(fields, zap.Error(readErr))...)
		return nil, readErr
	}

	shown := full
	if len(shown) > maxTracedBody {
		shown = shown[:maxTracedBody]
	}
	t.logger.Debug("HTTP exchange.", append(fields,
		zap.Int("status", resp.StatusCode),
		zap.Int("response_bytes", len(full)),
		zap.ByteString("response_body", shown),
	)...)
	return resp, nil
}
