package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// ModeRow represents a row in the modes table.
type ModeRow struct {
	Path        string
	Name        string
	Description string
	Model       string
	Tools       []string
	Checksum    string
	UpdatedAt   time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
}

// ToolUsage counts how many modes reference a tool.
type ToolUsage struct {
	Tool  string `json:"tool"`
	Modes int    `json:"modes"`
}

// GraphNode is a node in the modes↔tools graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	Kind  string `json:"kind"` // "mode" or "tool"
}

// GraphLink is a mode→tool edge.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UpsertMode inserts or replaces a mode, its FTS entry, and its tool edges
// within a transaction.
func (db *DB) UpsertMode(m ModeRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	toolsJSON, _ := json.Marshal(m.Tools)

	// Upsert modes table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO modes (path, name, description, model, tools, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description,
			model       = excluded.model,
			tools       = excluded.tools,
			checksum    = excluded.checksum,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, m.Path, m.Name, m.Description, m.Model, string(toolsJSON), m.Checksum, body, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert mode: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, m.Path, m.Name, m.Description, body); err != nil {
		return err
	}

	// Replace tool edges: delete old then bulk insert in declaration order.
	_, _ = tx.Exec(`DELETE FROM mode_tools WHERE mode = ?`, m.Path)
	if len(m.Tools) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO mode_tools (mode, tool, position) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare tool insert: %w", err)
		}
		defer stmt.Close()
		for i, tool := range m.Tools {
			if _, err := stmt.Exec(m.Path, tool, i); err != nil {
				return fmt.Errorf("catalog: insert tool edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteMode removes a mode, its FTS entry, and its tool edges.
func (db *DB) DeleteMode(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM mode_tools WHERE mode = ?`, path)
	_, _ = tx.Exec(`DELETE FROM modes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a mode, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM modes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// ListModes returns a page of modes with an optional tool filter.
// sort accepts "updated_at" (default, newest first), "name", or "path".
func (db *DB) ListModes(limit, offset int, tool, sort string) ([]ModeRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	orderBy := "updated_at DESC"
	switch sort {
	case "name":
		orderBy = "name ASC"
	case "path":
		orderBy = "path ASC"
	}

	where := ""
	args := []any{}
	if tool != "" {
		where = `WHERE path IN (SELECT mode FROM mode_tools WHERE tool = ?)`
		args = append(args, tool)
	}

	var total int
	countArgs := append([]any{}, args...)
	if err := db.conn.QueryRow(`SELECT count(*) FROM modes `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count modes: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := db.conn.Query(`
		SELECT path, name, description, model, tools, checksum, updated_at
		FROM modes `+where+`
		ORDER BY `+orderBy+`
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list modes: %w", err)
	}
	defer rows.Close()

	var out []ModeRow
	for rows.Next() {
		m, err := scanMode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMode(r rowScanner) (ModeRow, error) {
	var m ModeRow
	var toolsJSON string
	if err := r.Scan(&m.Path, &m.Name, &m.Description, &m.Model, &toolsJSON, &m.Checksum, &m.UpdatedAt); err != nil {
		return ModeRow{}, fmt.Errorf("catalog: scan mode: %w", err)
	}
	if err := json.Unmarshal([]byte(toolsJSON), &m.Tools); err != nil {
		m.Tools = []string{}
	}
	if m.Tools == nil {
		m.Tools = []string{}
	}
	return m, nil
}

// Tools returns every tool referenced by at least one mode with its usage count.
func (db *DB) Tools() ([]ToolUsage, error) {
	rows, err := db.conn.Query(`
		SELECT tool, count(DISTINCT mode)
		FROM mode_tools
		GROUP BY tool
		ORDER BY tool
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: tools: %w", err)
	}
	defer rows.Close()

	var out []ToolUsage
	for rows.Next() {
		var t ToolUsage
		if err := rows.Scan(&t.Tool, &t.Modes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ModesForTool returns the paths of all modes that reference the given tool.
func (db *DB) ModesForTool(tool string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT mode FROM mode_tools WHERE tool = ? ORDER BY mode`, tool)
	if err != nil {
		return nil, fmt.Errorf("catalog: modes for tool: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Graph returns mode and tool nodes plus the mode→tool edges between them.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	var nodes []GraphNode

	modeRows, err := db.conn.Query(`SELECT path, name FROM modes ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph modes: %w", err)
	}
	defer modeRows.Close()
	for modeRows.Next() {
		var n GraphNode
		if err := modeRows.Scan(&n.ID, &n.Label); err != nil {
			return nil, nil, err
		}
		n.Kind = "mode"
		nodes = append(nodes, n)
	}
	if err := modeRows.Err(); err != nil {
		return nil, nil, err
	}

	toolRows, err := db.conn.Query(`SELECT DISTINCT tool FROM mode_tools ORDER BY tool`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph tools: %w", err)
	}
	defer toolRows.Close()
	for toolRows.Next() {
		var id string
		if err := toolRows.Scan(&id); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, GraphNode{ID: id, Kind: "tool"})
	}
	if err := toolRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`SELECT mode, tool FROM mode_tools ORDER BY mode, position`)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: graph links: %w", err)
	}
	defer linkRows.Close()
	var links []GraphLink
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// AllPaths returns every cataloged mode path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM modes`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns a path→checksum map for every cataloged mode.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM modes`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
