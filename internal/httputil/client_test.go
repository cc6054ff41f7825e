// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_SetsBaseURLAndUserAgent(t *testing.T) {
	var gotUA, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), ts.URL+"/api/", "harvester-test/0.1")
	resp, err := client.R().Get("PlantWetland/42")
	require.NoError(t, err)
	require.NoError(t, CheckResponse(resp))

	assert.Equal(t, "harvester-test/0.1", gotUA)
	assert.Equal(t, "/api/PlantWetland/42", gotPath)
}

func TestNewClient_DoesNotRetry(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), ts.URL, "ua")
	resp, err := client.R().Get("/")
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCheckResponse_StatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("  no such\n plant  "))
	}))
	defer ts.Close()

	client := NewClient(ts.Client(), ts.URL, "ua")
	resp, err := client.R().Get("/PlantProfile")
	require.NoError(t, err)

	err = CheckResponse(resp)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Equal(t, "no such plant", se.Body)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "", Excerpt(nil))
	assert.Equal(t, "a b c", Excerpt([]byte("a\n\tb   c\n")))

	long := strings.Repeat("x", maxExcerpt+10)
	got := Excerpt([]byte(long))
	assert.Len(t, got, maxExcerpt+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
