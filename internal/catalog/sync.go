package catalog

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/chatmode"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/storage"
)

// Sync walks the modes directory and brings the catalog up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the catalog
//   - malformed files are reported and dropped from the catalog; they stay
//     on disk for the author to fix
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: mode rejected", slog.String("path", m.Path), slog.String("error", err.Error()))
			_ = db.DeleteMode(m.Path)
		} else {
			logger.Debug("sync: cataloged", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteMode(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	doc, _, err := chatmode.Parse(path, data)
	if err != nil {
		return err
	}

	row := ModeRow{
		Path:        path,
		Name:        doc.Name(),
		Description: doc.Description,
		Model:       doc.Model,
		Tools:       doc.Tools,
		Checksum:    checksum.Sum(data),
		UpdatedAt:   time.Now(),
	}
	return db.UpsertMode(row, doc.Body)
}
