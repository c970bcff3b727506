package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/storage"
)

func testStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

func TestSync_IndexesNewFiles(t *testing.T) {
	db := testDB(t)
	_, store := testStore(t)
	_ = store.Write("plan.chatmode.md", []byte("---\ndescription: Plan mode\ntools: ['codebase']\n---\nPlan first."))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	rows, total, err := db.ListModes(0, 0, "", "")
	if err != nil {
		t.Fatalf("ListModes: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if rows[0].Name != "plan" || rows[0].Description != "Plan mode" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestSync_RemovesStaleEntries(t *testing.T) {
	db := testDB(t)
	dir, store := testStore(t)
	_ = store.Write("gone.chatmode.md", []byte("---\ndescription: X\n---\nBody."))
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	_ = os.Remove(filepath.Join(dir, "gone.chatmode.md"))
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	_, total, _ := db.ListModes(0, 0, "", "")
	if total != 0 {
		t.Errorf("total = %d, want 0 after removal", total)
	}
}

func TestSync_MalformedFileRejectedOthersSurvive(t *testing.T) {
	db := testDB(t)
	_, store := testStore(t)
	_ = store.Write("good.chatmode.md", []byte("---\ndescription: Good\n---\nBody."))
	_ = store.Write("bad.chatmode.md", []byte("---\ndescription: Broken\nno closing fence"))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	_, total, _ := db.ListModes(0, 0, "", "")
	if total != 1 {
		t.Errorf("total = %d, want only the good mode", total)
	}
	cs, _ := db.GetChecksum("good.chatmode.md")
	if cs == "" {
		t.Error("good mode missing from catalog")
	}
}

func TestSync_SkipsUnchangedByChecksum(t *testing.T) {
	db := testDB(t)
	_, store := testStore(t)
	_ = store.Write("a.chatmode.md", []byte("---\ndescription: A\n---\nBody."))

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	// Second sync over an unchanged tree must be a no-op and not error.
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	_, total, _ := db.ListModes(0, 0, "", "")
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}
