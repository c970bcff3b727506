package catalog

// ModeCatalog defines the interface for chatmode catalog operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ModeCatalog interface {
	UpsertMode(m ModeRow, body string) error
	DeleteMode(path string) error
	GetChecksum(path string) (string, error)
	ListModes(limit, offset int, tool, sort string) ([]ModeRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Tools() ([]ToolUsage, error)
	ModesForTool(tool string) ([]string, error)
	Graph() ([]GraphNode, []GraphLink, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ModeCatalog at compile time.
var _ ModeCatalog = (*DB)(nil)
