package utils

import (
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"demystifier-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// NewHTTPClient returns a client for upstream model calls. timeout bounds the
// wait for response headers only; streamed bodies run until the request
// context ends.
func NewHTTPClient(timeout time.Duration, debug bool) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: false,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	if debug {
		transport = NewDebugTransport(transport)
	}
	return &http.Client{Transport: transport}
}

// DebugTransport logs each outgoing request at debug level. Credential
// headers are redacted and bodies are reported by size only, since they
// carry user documents.
type DebugTransport struct {
	base http.RoundTripper
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields := logrus.Fields{
		"method":         req.Method,
		"url":            redactQuery(req.URL.String()),
		"content_length": req.ContentLength,
	}
	for name, values := range req.Header {
		if IsSensitiveHeader(name) {
			fields["header."+name] = "[REDACTED]"
		} else {
			fields["header."+name] = strings.Join(values, ", ")
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	fields["latency"] = time.Since(start).String()
	if err != nil {
		logger.WithFields(fields).Debugf("upstream request failed: %v", err)
		return resp, err
	}
	fields["status"] = resp.StatusCode
	logger.WithFields(fields).Debug("upstream request")
	return resp, nil
}

func IsSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "x-api-key", "x-goog-api-key", "x-auth-token", "cookie", "api-key":
		return true
	}
	return false
}

func redactQuery(u string) string {
	i := strings.Index(u, "key=")
	if i < 0 {
		return u
	}
	end := strings.IndexByte(u[i:], '&')
	if end < 0 {
		return u[:i] + "key=[REDACTED]"
	}
	return u[:i] + "key=[REDACTED]" + u[i+end:]
}
