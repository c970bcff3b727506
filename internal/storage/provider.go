// Package storage defines the modes-directory file-system abstraction.
package storage

import "github.com/starford/ansuz/internal/chatmode"

// Provider is the interface for chatmode file operations.
type Provider interface {
	// List returns metadata for every chatmode file under dir (relative to the modes root).
	List(dir string) ([]chatmode.Metadata, error)
	// Read returns the raw bytes of the file at path (relative to the modes root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the modes root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the modes root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to the modes root).
	Move(oldPath, newPath string) error
}
