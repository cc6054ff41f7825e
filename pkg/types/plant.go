// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"strings"
)

// MediaManifestEntry is one element of the PlantImages response. Each path
// is relative to the asset host; any of them may be empty.
type MediaManifestEntry struct {
	ImageID       ImageID `json:"ImageID" yaml:"image_id"`
	StandardPath  string  `json:"StandardSizeImageLibraryPath" yaml:"standard_path"`
	ThumbnailPath string  `json:"ThumbnailSizeImageLibraryPath" yaml:"thumbnail_path"`
	LargePath     string  `json:"LargeSizeImageLibraryPath" yaml:"large_path"`
	OriginalPath  string  `json:"OriginalSizeImageLibraryPath" yaml:"original_path"`
}

// ImageID identifies a manifest entry. It is only reported, never used to
// build paths, so any scalar the service sends is accepted.
type ImageID string

// UnmarshalJSON accepts a JSON number, string or null.
func (id *ImageID) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*id = ""
		return nil
	}
	*id = ImageID(strings.Trim(s, `"`))
	return nil
}

// Variants returns the non-empty size-variant paths in the order
// standard, thumbnail, large, original.
func (e MediaManifestEntry) Variants() []string {
	var out []string
	for _, p := range []string{e.StandardPath, e.ThumbnailPath, e.LargePath, e.OriginalPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SymbolState is the stage a symbol reached during processing.
type SymbolState string

const (
	StateResolving SymbolState = "resolving_identifier"
	StateProfile   SymbolState = "fetching_profile"
	StateResources SymbolState = "fetching_resources"
	StateMedia     SymbolState = "fetching_media"
	StateComplete  SymbolState = "complete"
	StateFailed    SymbolState = "failed"
)

// SymbolOutcome records what happened to one symbol in a run.
type SymbolOutcome struct {
	Symbol     string      `json:"symbol" yaml:"symbol"`
	Identifier string      `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	State      SymbolState `json:"state" yaml:"state"`

	// Fetched and Missing list resource names that were or were not persisted.
	Fetched []string `json:"fetched,omitempty" yaml:"fetched,omitempty"`
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`

	ImagesDownloaded int `json:"images_downloaded" yaml:"images_downloaded"`
	ImagesFailed     int `json:"images_failed" yaml:"images_failed"`

	// Err is the failure message when State is failed.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}
