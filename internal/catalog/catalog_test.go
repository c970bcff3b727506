package catalog

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func modeRow(path, name string, tools ...string) ModeRow {
	return ModeRow{
		Path:        path,
		Name:        name,
		Description: "desc for " + name,
		Tools:       tools,
		Checksum:    "cs-" + name,
		UpdatedAt:   time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM modes`).Scan(&count); err != nil {
		t.Fatalf("modes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM mode_tools`).Scan(&count); err != nil {
		t.Fatalf("mode_tools table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertMode(modeRow("plan.chatmode.md", "plan", "codebase", "search"), "Plan first."); err != nil {
		t.Fatalf("UpsertMode: %v", err)
	}
	cs, err := db.GetChecksum("plan.chatmode.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "cs-plan" {
		t.Errorf("checksum = %q, want %q", cs, "cs-plan")
	}
}

func TestUpsertReplacesToolEdges(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "codebase", "search"), "body")
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "fetch"), "body")

	modes, err := db.ModesForTool("codebase")
	if err != nil {
		t.Fatalf("ModesForTool: %v", err)
	}
	if len(modes) != 0 {
		t.Errorf("stale edge survived: %v", modes)
	}
	modes, _ = db.ModesForTool("fetch")
	if len(modes) != 1 || modes[0] != "a.chatmode.md" {
		t.Errorf("modes = %v", modes)
	}
}

func TestModesForTool(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "search"), "body")
	_ = db.UpsertMode(modeRow("b.chatmode.md", "b", "search", "fetch"), "body")

	modes, err := db.ModesForTool("search")
	if err != nil {
		t.Fatalf("ModesForTool: %v", err)
	}
	if len(modes) != 2 {
		t.Fatalf("expected 2 modes, got %d", len(modes))
	}
}

func TestTools(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "search"), "body")
	_ = db.UpsertMode(modeRow("b.chatmode.md", "b", "search", "fetch"), "body")

	tools, err := db.Tools()
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	// Sorted by tool name: fetch before search.
	if tools[0].Tool != "fetch" || tools[0].Modes != 1 {
		t.Errorf("tools[0] = %+v", tools[0])
	}
	if tools[1].Tool != "search" || tools[1].Modes != 2 {
		t.Errorf("tools[1] = %+v", tools[1])
	}
}

func TestDeleteMode(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("del.chatmode.md", "del", "search"), "body")

	if err := db.DeleteMode("del.chatmode.md"); err != nil {
		t.Fatalf("DeleteMode: %v", err)
	}
	cs, _ := db.GetChecksum("del.chatmode.md")
	if cs != "" {
		t.Errorf("checksum should be empty after delete, got %q", cs)
	}
	modes, _ := db.ModesForTool("search")
	if len(modes) != 0 {
		t.Errorf("tool edges should be gone, got %v", modes)
	}
}

func TestListModes_FilterAndPaging(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "search"), "body")
	_ = db.UpsertMode(modeRow("b.chatmode.md", "b", "fetch"), "body")
	_ = db.UpsertMode(modeRow("c.chatmode.md", "c", "search"), "body")

	rows, total, err := db.ListModes(0, 0, "", "path")
	if err != nil {
		t.Fatalf("ListModes: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total = %d, len = %d", total, len(rows))
	}
	if rows[0].Path != "a.chatmode.md" {
		t.Errorf("rows[0] = %q", rows[0].Path)
	}

	rows, total, err = db.ListModes(10, 0, "search", "path")
	if err != nil {
		t.Fatalf("ListModes(tool): %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("filtered total = %d, len = %d", total, len(rows))
	}

	rows, _, err = db.ListModes(1, 1, "", "path")
	if err != nil {
		t.Fatalf("ListModes(page): %v", err)
	}
	if len(rows) != 1 || rows[0].Path != "b.chatmode.md" {
		t.Errorf("page rows = %+v", rows)
	}
}

func TestListModes_ToolsDecoded(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "codebase", "search"), "body")

	rows, _, err := db.ListModes(0, 0, "", "")
	if err != nil {
		t.Fatalf("ListModes: %v", err)
	}
	if len(rows) != 1 {
		t.Fatal("expected 1 row")
	}
	if len(rows[0].Tools) != 2 || rows[0].Tools[0] != "codebase" {
		t.Errorf("tools = %v", rows[0].Tools)
	}
}

func TestGraph(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a", "search", "fetch"), "body")
	_ = db.UpsertMode(modeRow("b.chatmode.md", "b"), "body")

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	// 2 mode nodes + 2 tool nodes.
	if len(nodes) != 4 {
		t.Fatalf("len(nodes) = %d, want 4", len(nodes))
	}
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	if links[0].Source != "a.chatmode.md" || links[0].Target != "search" {
		t.Errorf("links[0] = %+v, want declaration order preserved", links[0])
	}
}

func TestSearch_Fallback(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("plan.chatmode.md", "plan"), "Generate an implementation plan before coding.")
	_ = db.UpsertMode(modeRow("review.chatmode.md", "review"), "Review the diff carefully.")

	results, err := db.Search("implementation", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "plan.chatmode.md" {
		t.Errorf("results = %+v", results)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertMode(modeRow("a.chatmode.md", "a"), "body")
	_ = db.UpsertMode(modeRow("b.chatmode.md", "b"), "body")

	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(cs) != 2 || cs["a.chatmode.md"] != "cs-a" {
		t.Errorf("checksums = %v", cs)
	}
}
