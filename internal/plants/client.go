// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plants talks to the USDA PLANTS services API: it resolves species
// symbols to plant identifiers and fetches identifier-keyed sub-resources
// described by a fixed ResourceSpec table.
package plants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/plant-harvester/internal/httputil"
)

// ErrNotResolved is returned when the service has no identifier for a symbol.
var ErrNotResolved = errors.New("no identifier for symbol")

// negotiationHeaders are required by the write-style distribution endpoint,
// which refuses requests that do not look like they come from the PLANTS
// website. Values must stay byte-for-byte as the browser sends them.
var negotiationHeaders = map[string]string{
	"Origin":          "https://plants.sc.egov.usda.gov",
	"Referer":         "https://plants.sc.egov.usda.gov/",
	"Sec-Fetch-Dest":  "empty",
	"Sec-Fetch-Mode":  "cors",
	"Sec-Fetch-Site":  "same-site",
	"DNT":             "1",
	"Accept-Language": "en-US,en;q=0.9",
}

// Kind tags how a FetchResult body is encoded.
type Kind int

const (
	KindJSON Kind = iota
	KindText
)

func (k Kind) String() string {
	if k == KindJSON {
		return "json"
	}
	return "text"
}

// FetchResult is a successfully retrieved sub-resource. JSON bodies are kept
// as the raw bytes the service sent so that key order survives persistence.
type FetchResult struct {
	Spec ResourceSpec
	Kind Kind
	Body []byte
}

// Encoded returns the bytes written to disk: JSON indented by four spaces
// with a trailing newline, text verbatim.
func (r *FetchResult) Encoded() []byte {
	if r.Kind != KindJSON {
		return r.Body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Body, "", "    "); err != nil {
		return r.Body
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Client is a PLANTS API client. It performs no retries and no caching.
type Client struct {
	http *resty.Client
}

// NewClient returns a client for the API rooted at apiBase.
func NewClient(hc *http.Client, apiBase, userAgent string) *Client {
	return &Client{http: httputil.NewClient(hc, apiBase, userAgent)}
}

type profileID struct {
	ID any `json:"Id"`
}

// ResolveIdentifier looks up the plant identifier for symbol. A non-success
// response or a profile without an Id yields an error wrapping
// ErrNotResolved; transport failures are returned as-is.
func (c *Client) ResolveIdentifier(ctx context.Context, symbol string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", AcceptJSON).
		SetQueryParam("symbol", symbol).
		Get("PlantProfile")
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", symbol, err)
	}
	if err := httputil.CheckResponse(resp); err != nil {
		slog.WarnContext(ctx, "identifier lookup failed",
			"symbol", symbol, "status", resp.StatusCode())
		return "", fmt.Errorf("%w %s: %w", ErrNotResolved, symbol, err)
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	var p profileID
	if err := dec.Decode(&p); err != nil {
		return "", fmt.Errorf("parsing profile for %s: %w", symbol, err)
	}

	var id string
	switch v := p.ID.(type) {
	case json.Number:
		id = v.String()
	case string:
		id = v
	}
	if id == "" {
		slog.WarnContext(ctx, "profile has no identifier", "symbol", symbol)
		return "", fmt.Errorf("%w %s", ErrNotResolved, symbol)
	}
	return id, nil
}

// Profile fetches the profile document keyed by symbol.
func (c *Client) Profile(ctx context.Context, symbol string) *FetchResult {
	return c.Fetch(ctx, symbol, ProfileSpec)
}

// Fetch retrieves spec for param. Specs with a body template are sent as a
// POST with the browser negotiation headers; all others are a plain GET.
// Any failure is logged here and reported as a nil result.
func (c *Client) Fetch(ctx context.Context, param string, spec ResourceSpec) *FetchResult {
	path := spec.URLPath(url.PathEscape(param))
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", spec.Accept)

	var (
		resp *resty.Response
		err  error
	)
	if body := spec.RequestBody(param); body != "" {
		resp, err = req.
			SetHeaders(negotiationHeaders).
			SetHeader("Content-Type", AcceptJSON).
			SetBody(body).
			Post(path)
	} else {
		resp, err = req.Get(path)
	}
	if err != nil {
		slog.WarnContext(ctx, "fetch failed", "resource", spec.Name, "param", param, "err", err)
		return nil
	}
	if err := httputil.CheckResponse(resp); err != nil {
		slog.WarnContext(ctx, "fetch failed",
			"resource", spec.Name,
			"param", param,
			"status", resp.StatusCode(),
			"body", httputil.Excerpt(resp.Body()),
		)
		return nil
	}

	result := &FetchResult{Spec: spec, Kind: KindText, Body: resp.Body()}
	if spec.IsJSON() {
		if !json.Valid(result.Body) {
			slog.WarnContext(ctx, "fetch returned malformed JSON",
				"resource", spec.Name, "param", param, "bytes", len(result.Body))
			return nil
		}
		result.Kind = KindJSON
	}
	return result
}
