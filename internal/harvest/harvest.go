// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest fetches every configured PLANTS resource for a species
// symbol and persists it under a per-symbol directory, one symbol at a time.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/plant-harvester/internal/media"
	"github.com/pdiddy/plant-harvester/internal/plants"
	"github.com/pdiddy/plant-harvester/pkg/types"
)

var (
	// ErrResolution marks a symbol the service has no identifier for.
	ErrResolution = errors.New("identifier resolution failed")

	// ErrUnexpected marks a panic recovered while processing a symbol.
	ErrUnexpected = errors.New("unexpected failure")

	// ErrInvalidSymbol marks a symbol that cannot name a directory inside
	// the output directory.
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// sleep is the throttle between symbols. Tests replace it to avoid real waits.
var sleep = time.Sleep

// ResourceClient is the subset of *plants.Client the harvester needs.
type ResourceClient interface {
	ResolveIdentifier(ctx context.Context, symbol string) (string, error)
	Profile(ctx context.Context, symbol string) *plants.FetchResult
	Fetch(ctx context.Context, param string, spec plants.ResourceSpec) *plants.FetchResult
}

// MediaDownloader downloads manifest entries into a symbol directory.
type MediaDownloader interface {
	Download(ctx context.Context, symbolDir string, entries []types.MediaManifestEntry) media.Stats
}

// Recorder receives the outcome of every symbol in a batch.
type Recorder interface {
	Record(ctx context.Context, outcome types.SymbolOutcome) error
}

// Harvester processes symbols against one PLANTS service.
type Harvester struct {
	Client    ResourceClient
	Media     MediaDownloader
	OutputDir string

	// Delay is the fixed pause between consecutive symbols in a batch.
	Delay time.Duration

	// Resources overrides the fetched table; nil means plants.Resources().
	Resources []plants.ResourceSpec

	// Recorder, when set, is given each symbol outcome.
	Recorder Recorder
}

func (h *Harvester) resources() []plants.ResourceSpec {
	if h.Resources != nil {
		return h.Resources
	}
	return plants.Resources()
}

// validSymbol reports whether symbol is a single local path element, so
// that SymbolDir stays inside OutputDir.
func validSymbol(symbol string) bool {
	return filepath.IsLocal(symbol) && !strings.ContainsAny(symbol, `/\`) && symbol != "."
}

// SymbolDir returns the output directory for symbol.
func (h *Harvester) SymbolDir(symbol string) string {
	return filepath.Join(h.OutputDir, symbol)
}

// ProcessSymbol resolves symbol, fetches its profile and every table
// resource, then downloads the images named in the persisted manifest.
// Nothing is written when the identifier cannot be resolved. A missing
// resource is logged and listed in the outcome but is not an error.
func (h *Harvester) ProcessSymbol(ctx context.Context, symbol string) (types.SymbolOutcome, error) {
	out := types.SymbolOutcome{Symbol: symbol, State: types.StateResolving}
	if !validSymbol(symbol) {
		out.State = types.StateFailed
		return out, fmt.Errorf("%w %q", ErrInvalidSymbol, symbol)
	}

	id, err := h.Client.ResolveIdentifier(ctx, symbol)
	if err != nil {
		out.State = types.StateFailed
		if errors.Is(err, plants.ErrNotResolved) {
			return out, fmt.Errorf("%w: %w", ErrResolution, err)
		}
		return out, fmt.Errorf("resolving identifier: %w", err)
	}
	out.Identifier = id
	log := slog.With("symbol", symbol, "id", id)

	dir := h.SymbolDir(symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		out.State = types.StateFailed
		return out, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	out.State = types.StateProfile
	if res := h.Client.Profile(ctx, symbol); res != nil {
		if err := writeResult(filepath.Join(dir, symbol+".json"), res); err != nil {
			out.State = types.StateFailed
			return out, err
		}
		out.Fetched = append(out.Fetched, res.Spec.Name)
	} else {
		log.WarnContext(ctx, "profile not available")
		out.Missing = append(out.Missing, plants.ProfileSpec.Name)
	}

	out.State = types.StateResources
	for _, spec := range h.resources() {
		res := h.Client.Fetch(ctx, id, spec)
		if res == nil {
			log.WarnContext(ctx, "resource not available", "resource", spec.Name)
			out.Missing = append(out.Missing, spec.Name)
			continue
		}
		if err := writeResult(filepath.Join(dir, spec.FileName()), res); err != nil {
			out.State = types.StateFailed
			return out, err
		}
		out.Fetched = append(out.Fetched, spec.Name)
	}

	out.State = types.StateMedia
	manifestPath := filepath.Join(dir, plants.ImagesResource+".json")
	data, err := os.ReadFile(manifestPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.InfoContext(ctx, "no media manifest on disk")
	case err != nil:
		out.State = types.StateFailed
		return out, fmt.Errorf("reading media manifest: %w", err)
	default:
		entries, err := media.ParseManifest(data)
		if err != nil {
			out.State = types.StateFailed
			return out, err
		}
		st := h.Media.Download(ctx, dir, entries)
		out.ImagesDownloaded = st.Downloaded
		out.ImagesFailed = st.Failed
		log.DebugContext(ctx, "media downloaded",
			"entries", len(entries), "attempted", st.Attempted, "failed", st.Failed)
	}

	out.State = types.StateComplete
	return out, nil
}

// process runs ProcessSymbol and turns a panic into an error, so one bad
// record cannot take down a batch.
func (h *Harvester) process(ctx context.Context, symbol string) (out types.SymbolOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out.Symbol = symbol
			out.State = types.StateFailed
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
	}()
	return h.ProcessSymbol(ctx, symbol)
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Succeeded int
	Failed    int
	Outcomes  []types.SymbolOutcome
}

// Total returns the number of symbols processed.
func (r BatchResult) Total() int {
	return r.Succeeded + r.Failed
}

// HasFailures reports whether any symbol failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FailedSymbols lists the symbols that failed, in processing order.
func (r BatchResult) FailedSymbols() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.State == types.StateFailed {
			out = append(out, o.Symbol)
		}
	}
	return out
}

// RunBatch processes symbols in order, printing per-symbol status to w and
// a final error summary. A failed symbol is counted and skipped; the batch
// always runs to the end. Delay is applied between consecutive symbols.
func (h *Harvester) RunBatch(ctx context.Context, symbols []string, w io.Writer) BatchResult {
	var result BatchResult
	for i, sym := range symbols {
		if i > 0 && h.Delay > 0 {
			sleep(h.Delay)
		}
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(symbols), sym)

		out, err := h.process(ctx, sym)
		if err != nil {
			out.State = types.StateFailed
			out.Err = err.Error()
			fmt.Fprintf(w, "failed:  %s (%v)\n", sym, err)
			result.Failed++
		} else {
			fmt.Fprintf(w, "done:    %s (id %s, %d fetched, %d missing, %d images)\n",
				sym, out.Identifier, len(out.Fetched), len(out.Missing), out.ImagesDownloaded)
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, out)

		if h.Recorder != nil {
			if rerr := h.Recorder.Record(ctx, out); rerr != nil {
				slog.WarnContext(ctx, "recording outcome failed", "symbol", sym, "err", rerr)
			}
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d succeeded, %d failed (total: %d)\n",
		result.Succeeded, result.Failed, result.Total())
	fmt.Fprintf(w, "Errors: %d/%d\n", result.Failed, result.Total())
	return result
}

func writeResult(path string, res *plants.FetchResult) error {
	if err := os.WriteFile(path, res.Encoded(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
