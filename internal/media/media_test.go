// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/plant-harvester/pkg/types"
)

const sampleManifest = `[
  {
    "ImageID": 101,
    "StandardSizeImageLibraryPath": "/ImageLibrary/standard/abab_001_svp.jpg",
    "ThumbnailSizeImageLibraryPath": "/ImageLibrary/thumbnail/abab_001_thp.jpg",
    "LargeSizeImageLibraryPath": "/ImageLibrary/large/abab_001_lhp.jpg",
    "OriginalSizeImageLibraryPath": "/ImageLibrary/original/abab_001_php.jpg",
    "Copyright": "public domain"
  },
  {
    "ImageID": 102,
    "StandardSizeImageLibraryPath": "/ImageLibrary/standard/abab_002_svp.jpg",
    "ThumbnailSizeImageLibraryPath": "/ImageLibrary/thumbnail/abab_002_thp.jpg",
    "LargeSizeImageLibraryPath": "/ImageLibrary/large/abab_002_lhp.jpg",
    "OriginalSizeImageLibraryPath": "/ImageLibrary/original/abab_002_php.jpg"
  }
]`

// newAssetServer serves every path as its own body, except paths containing
// "fail", which return 404.
func newAssetServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if strings.Contains(r.URL.Path, "fail") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprint(w, "img:"+r.URL.Path)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestParseManifest(t *testing.T) {
	entries, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, types.ImageID("101"), entries[0].ImageID)
	assert.Equal(t, "/ImageLibrary/large/abab_001_lhp.jpg", entries[0].LargePath)
	assert.Len(t, entries[1].Variants(), 4)

	for _, empty := range []string{"", "  ", "null", "[]"} {
		entries, err := ParseManifest([]byte(empty))
		require.NoError(t, err, "input %q", empty)
		assert.Empty(t, entries, "input %q", empty)
	}

	_, err = ParseManifest([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestParseManifestImageIDShapes(t *testing.T) {
	entries, err := ParseManifest([]byte(`[
		{"ImageID": 7, "StandardSizeImageLibraryPath": "/a.jpg"},
		{"ImageID": "IMG-8", "StandardSizeImageLibraryPath": "/b.jpg"},
		{"ImageID": null, "StandardSizeImageLibraryPath": "/c.jpg"},
		{"StandardSizeImageLibraryPath": "/d.jpg"}
	]`))
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, types.ImageID("7"), entries[0].ImageID)
	assert.Equal(t, types.ImageID("IMG-8"), entries[1].ImageID)
	assert.Empty(t, entries[2].ImageID)
	assert.Empty(t, entries[3].ImageID)
	assert.Equal(t, []string{"/b.jpg"}, entries[1].Variants())
}

func TestDownloadAllVariants(t *testing.T) {
	var calls int32
	ts := newAssetServer(t, &calls)

	entries, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	dir := t.TempDir()
	d := &Downloader{Client: ts.Client(), AssetBase: ts.URL, UserAgent: "test"}
	st := d.Download(context.Background(), dir, entries)

	assert.Equal(t, Stats{Attempted: 8, Downloaded: 8}, st)
	assert.Equal(t, int32(8), atomic.LoadInt32(&calls))

	data, err := os.ReadFile(filepath.Join(dir, ImagesDir, "abab_002_php.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img:/ImageLibrary/original/abab_002_php.jpg", string(data))

	// No temp files are left behind.
	tmp, err := filepath.Glob(filepath.Join(dir, ImagesDir, ".media-*"))
	require.NoError(t, err)
	assert.Empty(t, tmp)
}

func TestDownloadFailureDoesNotStopOthers(t *testing.T) {
	var calls int32
	ts := newAssetServer(t, &calls)

	entries := []types.MediaManifestEntry{
		{
			ImageID:       "1",
			StandardPath:  "/img/fail_std.jpg",
			ThumbnailPath: "/img/ok_thumb.jpg",
			LargePath:     "/img/fail_large.jpg",
			OriginalPath:  "/img/ok_orig.jpg",
		},
		{
			ImageID:      "2",
			StandardPath: "/img/ok_two.jpg",
		},
	}

	dir := t.TempDir()
	d := &Downloader{Client: ts.Client(), AssetBase: ts.URL}
	st := d.Download(context.Background(), dir, entries)

	assert.Equal(t, Stats{Attempted: 5, Downloaded: 3, Failed: 2}, st)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	assert.FileExists(t, filepath.Join(dir, ImagesDir, "ok_thumb.jpg"))
	assert.FileExists(t, filepath.Join(dir, ImagesDir, "ok_orig.jpg"))
	assert.FileExists(t, filepath.Join(dir, ImagesDir, "ok_two.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, ImagesDir, "fail_std.jpg"))
}

func TestDownloadLogsEachResponse(t *testing.T) {
	var calls int32
	ts := newAssetServer(t, &calls)

	var logs bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(orig) })

	d := &Downloader{Client: ts.Client(), AssetBase: ts.URL}
	st := d.Download(context.Background(), t.TempDir(), []types.MediaManifestEntry{
		{StandardPath: "/img/ok_logged.jpg", ThumbnailPath: "/img/fail_logged.jpg"},
	})
	assert.Equal(t, Stats{Attempted: 2, Downloaded: 1, Failed: 1}, st)

	out := logs.String()
	assert.Contains(t, out, "http response")
	assert.Contains(t, out, "/img/ok_logged.jpg")
	assert.Contains(t, out, "status=404")
}

func TestDownloadAbsoluteURLAndOverwrite(t *testing.T) {
	var calls int32
	ts := newAssetServer(t, &calls)

	dir := t.TempDir()
	imgDir := filepath.Join(dir, ImagesDir)
	require.NoError(t, os.MkdirAll(imgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imgDir, "x.jpg"), []byte("stale"), 0o644))

	d := &Downloader{Client: ts.Client(), AssetBase: "http://unused.invalid"}
	st := d.Download(context.Background(), dir, []types.MediaManifestEntry{
		{StandardPath: ts.URL + "/abs/x.jpg"},
	})
	assert.Equal(t, Stats{Attempted: 1, Downloaded: 1}, st)

	data, err := os.ReadFile(filepath.Join(imgDir, "x.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img:/abs/x.jpg", string(data))
}

func TestDownloadNoEntries(t *testing.T) {
	dir := t.TempDir()
	d := &Downloader{AssetBase: "http://unused.invalid"}
	assert.Equal(t, Stats{}, d.Download(context.Background(), dir, nil))
	assert.DirExists(t, filepath.Join(dir, ImagesDir))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "abab_001_svp.jpg", FileName("https://plants.sc.egov.usda.gov/ImageLibrary/standard/abab_001_svp.jpg"))
	assert.Equal(t, "a.png", FileName("https://host/x/a.png?size=large"))

	fallback := FileName("https://host/")
	assert.True(t, strings.HasPrefix(fallback, "image_"))
	assert.True(t, strings.HasSuffix(fallback, ".jpg"))
	assert.Equal(t, fallback, FileName("https://host/"), "fallback names are stable")
}
