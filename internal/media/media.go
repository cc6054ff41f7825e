// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package media downloads the images listed in a plant's media manifest.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/plant-harvester/internal/httputil"
	"github.com/pdiddy/plant-harvester/pkg/types"
)

// ImagesDir is the subdirectory of a symbol directory that holds assets.
const ImagesDir = "images"

// Stats counts download attempts for one manifest.
type Stats struct {
	Attempted  int
	Downloaded int
	Failed     int
}

// Downloader fetches manifest assets from AssetBase.
type Downloader struct {
	Client    *http.Client
	AssetBase string
	UserAgent string
}

// ParseManifest decodes a PlantImages document. A null or empty document
// has no entries.
func ParseManifest(data []byte) ([]types.MediaManifestEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var entries []types.MediaManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing media manifest: %w", err)
	}
	return entries, nil
}

// Download fetches every size variant of every entry into
// symbolDir/images/. Each variant is attempted independently; failures are
// logged and counted, never returned. Existing files are overwritten.
func (d *Downloader) Download(ctx context.Context, symbolDir string, entries []types.MediaManifestEntry) Stats {
	var st Stats
	dir := filepath.Join(symbolDir, ImagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		for _, e := range entries {
			n := len(e.Variants())
			st.Attempted += n
			st.Failed += n
		}
		slog.WarnContext(ctx, "cannot create images directory", "dir", dir, "err", err)
		return st
	}

	client := httputil.NewClient(d.Client, "", d.UserAgent)
	for _, e := range entries {
		for _, p := range e.Variants() {
			st.Attempted++
			if err := d.fetchVariant(ctx, client, dir, p); err != nil {
				st.Failed++
				slog.WarnContext(ctx, "image download failed",
					"image_id", e.ImageID, "path", p, "err", err)
				continue
			}
			st.Downloaded++
		}
	}
	return st
}

func (d *Downloader) fetchVariant(ctx context.Context, client *resty.Client, dir, assetPath string) error {
	u, err := d.assetURL(assetPath)
	if err != nil {
		return err
	}
	dest := filepath.Join(dir, FileName(u))
	slog.DebugContext(ctx, "downloading image", "url", u, "dest", dest)
	return downloadFile(ctx, client, u, dest)
}

// assetURL resolves a manifest path against AssetBase. Absolute URLs are
// returned unchanged.
func (d *Downloader) assetURL(p string) (string, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("parsing asset path %q: %w", p, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(d.AssetBase)
	if err != nil {
		return "", fmt.Errorf("parsing asset base %q: %w", d.AssetBase, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// FileName returns the base filename of rawURL's path, or a stable
// hash-derived name when the path has none.
func FileName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	h := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("image_%x.jpg", h[:8])
}

// downloadFile streams rawURL into a temporary file in the destination
// directory and renames it over destPath, so a failed download never leaves
// a partial asset.
func downloadFile(ctx context.Context, client *resty.Client, rawURL, destPath string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".media-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	resp, err := client.R().
		SetContext(ctx).
		SetOutput(tmpPath).
		Get(rawURL)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("HTTP request: %w", err)
	}
	if !resp.IsSuccess() {
		body := readHead(tmpPath, 4096)
		os.Remove(tmpPath)
		return &httputil.StatusError{
			Method:     http.MethodGet,
			URL:        rawURL,
			StatusCode: resp.StatusCode(),
			Body:       httputil.Excerpt(body),
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// readHead returns up to n bytes from the start of path.
func readHead(path string, n int64) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	data, _ := io.ReadAll(io.LimitReader(f, n))
	return data
}
