// Package chatmode defines the chatmode document format: a front-matter
// header carrying description, tools, and model, followed by a Markdown body
// of instructions for an AI coding assistant.
package chatmode

import (
	"errors"
	"path"
	"strings"
	"time"
)

// Suffix is the file-name suffix every chatmode document carries.
const Suffix = ".chatmode.md"

// Format errors. All are recoverable: a malformed document is reported and
// skipped, never failing a whole batch.
var (
	ErrUnterminatedHeader = errors.New("unterminated header")
	ErrInvalidToolsList   = errors.New("invalid tools list")
	ErrMissingDescription = errors.New("missing description")
	ErrEmptyBody          = errors.New("empty body")
)

// IsFormatError reports whether err is one of the document format errors.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrUnterminatedHeader) ||
		errors.Is(err, ErrInvalidToolsList) ||
		errors.Is(err, ErrMissingDescription) ||
		errors.Is(err, ErrEmptyBody)
}

// Document is a parsed chatmode file.
type Document struct {
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Tools       []string       `json:"tools"`
	Model       string         `json:"model,omitempty"`
	Extra       map[string]any `json:"frontmatter,omitempty"`
	Body        string         `json:"body"`
}

// Name returns the mode name: the file-name stem with the chatmode suffix
// (or a plain .md extension) removed.
func (d *Document) Name() string {
	return NameFromPath(d.Path)
}

// NameFromPath derives a mode name from a document path.
func NameFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if strings.HasSuffix(base, Suffix) {
		return strings.TrimSuffix(base, Suffix)
	}
	return strings.TrimSuffix(base, ".md")
}

// Metadata is a lightweight representation returned by list operations.
type Metadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
