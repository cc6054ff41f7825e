// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the PLANTS API client and
// the media downloader.
package httputil

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// maxExcerpt bounds how much of a response body is kept in errors and logs.
const maxExcerpt = 512

// StatusError describes a non-success HTTP response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Excerpt trims body to a single log-friendly line of bounded length.
func Excerpt(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > maxExcerpt {
		return s[:maxExcerpt] + "..."
	}
	return s
}

// NewClient wraps hc in a resty client rooted at baseURL. Every request
// carries userAgent and every response is logged at debug level.
// The client does not retry.
func NewClient(hc *http.Client, baseURL, userAgent string) *resty.Client {
	if hc == nil {
		hc = &http.Client{}
	}
	client := resty.NewWithClient(hc)
	client.SetBaseURL(baseURL)
	client.SetHeader("User-Agent", userAgent)
	client.OnAfterResponse(logResponse)
	return client
}

// CheckResponse converts a non-2xx resty response into a *StatusError.
func CheckResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &StatusError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       Excerpt(resp.Body()),
	}
}

func logResponse(_ *resty.Client, resp *resty.Response) error {
	slog.DebugContext(resp.Request.Context(), "http response",
		"method", resp.Request.Method,
		"url", resp.Request.URL,
		"status", resp.StatusCode(),
		"bytes", resp.Size(),
		"elapsed", resp.Time(),
	)
	return nil
}
