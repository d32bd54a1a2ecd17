package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Manifest lists module PDFs to ingest in one run.
//
//	base_dir: ./training-pdfs
//	modules:
//	  - id: CM-101
//	    name: Classroom Routines
//	    competency: classroom_management
//	    file: cm101.pdf
type Manifest struct {
	BaseDir string          `yaml:"base_dir"`
	Modules []ManifestEntry `yaml:"modules"`
}

type ManifestEntry struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Competency string `yaml:"competency"`
	File       string `yaml:"file"`
}

type EntryReport struct {
	ModuleID string `json:"module_id"`
	File     string `json:"file"`
	Chunks   int    `json:"chunks_created"`
	Error    string `json:"error,omitempty"`
}

type ManifestReport struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Entries   []EntryReport `json:"entries"`
}

// ReadManifest parses path. Relative base_dir and file paths resolve
// against the manifest's directory.
func ReadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if m.BaseDir == "" {
		m.BaseDir = dir
	} else if !filepath.IsAbs(m.BaseDir) {
		m.BaseDir = filepath.Join(dir, m.BaseDir)
	}
	seen := map[string]bool{}
	for i, e := range m.Modules {
		if e.ID == "" || e.File == "" {
			return nil, fmt.Errorf("manifest %s: entry %d needs id and file", path, i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("manifest %s: duplicate module id %q", path, e.ID)
		}
		seen[e.ID] = true
		if !filepath.IsAbs(e.File) {
			m.Modules[i].File = filepath.Join(m.BaseDir, e.File)
		}
	}
	return &m, nil
}

// IngestManifest ingests every entry with at most Options.Concurrency
// running at once. A failing entry does not stop the others; the returned
// error joins every entry failure. Cancelling ctx aborts the run and the
// cancellation is part of the returned error.
func (s *Service) IngestManifest(ctx context.Context, m *Manifest) (ManifestReport, error) {
	report := ManifestReport{Entries: make([]EntryReport, len(m.Modules))}
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, e := range m.Modules {
		i, e := i, e
		g.Go(func() error {
			name := e.Name
			if name == "" {
				name = e.ID
			}
			res, err := s.IngestPDF(gctx, Request{ModuleID: e.ID, ModuleName: name, Competency: e.Competency, Path: e.File})
			entry := EntryReport{ModuleID: e.ID, File: e.File, Chunks: res.Chunks}
			if err != nil {
				entry.Error = err.Error()
				s.log.Warn("manifest entry failed", "module_id", e.ID, "file", e.File, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", e.ID, err))
				mu.Unlock()
			}
			report.Entries[i] = entry
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("manifest ingest aborted: %w", err))
	}

	for _, e := range report.Entries {
		if e.Error != "" {
			report.Failed++
		} else {
			report.Processed++
		}
	}
	return report, errors.Join(errs...)
}
