package internal

import (
	"context"
	"fmt"
	"io"

	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/storage"
)

// RunCheck validates every chatmode document in the configured modes
// directory and writes one line per document to out. It returns an error
// when at least one document is malformed, so the CLI exits non-zero.
func RunCheck(_ context.Context, cfg *Config, out io.Writer) error {
	store, err := storage.NewFS(cfg.Modes.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	metas, err := store.List("")
	if err != nil {
		return err
	}

	sources := make([]registry.Source, 0, len(metas))
	for _, m := range metas {
		data, readErr := store.Read(m.Path)
		if readErr != nil {
			sources = append(sources, registry.Source{Path: m.Path})
			continue
		}
		sources = append(sources, registry.Source{Path: m.Path, Data: data})
	}

	failed := 0
	for _, res := range registry.LoadSources(sources) {
		switch {
		case res.Err != nil:
			failed++
			// res.Err already carries the document path.
			fmt.Fprintf(out, "FAIL  %v\n", res.Err)
		case len(res.Warnings) > 0:
			fmt.Fprintf(out, "WARN  %s: %s\n", res.Path, res.Warnings[0])
		default:
			fmt.Fprintf(out, "OK    %s\n", res.Path)
		}
	}
	fmt.Fprintf(out, "%d checked, %d failed\n", len(sources), failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d modes failed validation", failed, len(sources))
	}
	return nil
}
