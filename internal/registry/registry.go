// Package registry coordinates the modes directory and the catalog: it
// loads and validates chatmode documents, resolves them by name, and backs
// the HTTP and MCP serving surfaces.
package registry

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/catalog"
	"github.com/starford/ansuz/internal/chatmode"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/storage"
)

// Source is one raw document handed to LoadSources.
type Source struct {
	Path string
	Data []byte
}

// LoadResult is the per-document outcome of a batch load. Exactly one of
// Doc or Err is set.
type LoadResult struct {
	Path     string
	Doc      *chatmode.Document
	Warnings []string
	Err      error
}

// LoadSources parses every source and returns one result per source in
// input order. A malformed document never prevents the rest of the batch
// from loading; failures are reported per item.
func LoadSources(sources []Source) []LoadResult {
	out := make([]LoadResult, len(sources))
	for i, src := range sources {
		doc, warnings, err := chatmode.Parse(src.Path, src.Data)
		out[i] = LoadResult{Path: src.Path, Doc: doc, Warnings: warnings, Err: err}
	}
	return out
}

// ModeDetail is the full representation of a chatmode.
type ModeDetail struct {
	chatmode.Document
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	Warnings  []string  `json:"warnings,omitempty"`
	UsedTools []string  `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ModeListItem is a lightweight item in a list response.
type ModeListItem struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Model       string    `json:"model,omitempty"`
	Tools       []string  `json:"tools"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service coordinates storage and catalog operations.
type Service struct {
	store storage.Provider
	db    *catalog.DB
}

// NewService creates a new registry service.
func NewService(store storage.Provider, db *catalog.DB) *Service {
	return &Service{store: store, db: db}
}

// ResolvePath turns a mode identifier into a document path. A bare name
// ("plan", "team/review") maps to "<name>.chatmode.md"; a path that already
// carries the suffix is used as-is.
func ResolvePath(identifier string) string {
	if strings.HasSuffix(identifier, chatmode.Suffix) {
		return identifier
	}
	return identifier + chatmode.Suffix
}

// Get reads a mode from storage by name or path and parses it.
// It fails with apperr.ErrNotFound when no document has that identifier and
// never returns a partially constructed mode.
func (s *Service) Get(_ context.Context, identifier string) (*ModeDetail, error) {
	path := ResolvePath(identifier)
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildModeDetail(path, data)
}

// LoadAll reads every document in the modes directory and returns one
// result per document in listing order.
func (s *Service) LoadAll(_ context.Context) ([]LoadResult, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(metas))
	for _, m := range metas {
		data, readErr := s.store.Read(m.Path)
		if readErr != nil {
			sources = append(sources, Source{Path: m.Path})
			continue
		}
		sources = append(sources, Source{Path: m.Path, Data: data})
	}
	return LoadSources(sources), nil
}

// Create validates and writes a new mode, then catalogs it.
func (s *Service) Create(_ context.Context, path string, content []byte) (*ModeDetail, error) {
	// Reject malformed content before anything touches disk.
	if _, _, err := chatmode.Parse(path, content); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return buildModeDetail(path, content)
}

// Update writes updated content with optimistic concurrency.
func (s *Service) Update(_ context.Context, path string, content []byte, ifMatch string) (*ModeDetail, error) {
	if _, _, err := chatmode.Parse(path, content); err != nil {
		return nil, err
	}
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return buildModeDetail(path, content)
}

// Delete removes a mode from storage and catalog.
func (s *Service) Delete(_ context.Context, identifier string) error {
	path := ResolvePath(identifier)
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteMode(path)
}

// List returns paginated modes with an optional tool filter.
func (s *Service) List(_ context.Context, limit, offset int, tool, sort string) ([]ModeListItem, int, error) {
	rows, total, err := s.db.ListModes(limit, offset, tool, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ModeListItem, len(rows))
	for i, r := range rows {
		items[i] = ModeListItem{
			Path:        r.Path,
			Name:        r.Name,
			Description: r.Description,
			Model:       r.Model,
			Tools:       nonNilSlice(r.Tools),
			Checksum:    r.Checksum,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Tools returns every tool referenced by a mode with usage counts.
func (s *Service) Tools(_ context.Context) ([]catalog.ToolUsage, error) {
	return s.db.Tools()
}

// ModesForTool returns the paths of all modes granting the given tool.
func (s *Service) ModesForTool(_ context.Context, tool string) ([]string, error) {
	return s.db.ModesForTool(tool)
}

// Graph returns mode and tool nodes plus the edges for visualization.
func (s *Service) Graph(_ context.Context) ([]catalog.GraphNode, []catalog.GraphLink, error) {
	return s.db.Graph()
}

// IndexFile parses data and upserts it into the catalog.
// Exported so that create/update and tests can reuse it.
func (s *Service) IndexFile(path string, data []byte) error {
	doc, _, err := chatmode.Parse(path, data)
	if err != nil {
		return err
	}
	return s.db.UpsertMode(catalog.ModeRow{
		Path:        path,
		Name:        doc.Name(),
		Description: doc.Description,
		Model:       doc.Model,
		Tools:       nonNilSlice(doc.Tools),
		Checksum:    checksum.Sum(data),
		UpdatedAt:   time.Now(),
	}, doc.Body)
}

// buildModeDetail constructs a ModeDetail from raw data without re-reading
// the file.
func buildModeDetail(path string, data []byte) (*ModeDetail, error) {
	doc, warnings, err := chatmode.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return &ModeDetail{
		Document:  *doc,
		Name:      doc.Name(),
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Warnings:  warnings,
		UpdatedAt: time.Now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
