package storage

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(filepath.Join(t.TempDir(), "portfolio.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newTestDB(t))
}

// seedLegacyDB writes a raw database file shaped like an earlier product
// revision, bypassing Open so no migration runs.
func seedLegacyDB(t *testing.T, path string, stmts []string) {
	t.Helper()

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open raw database: %v", err)
	}
	defer conn.Close()

	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("Failed to seed legacy database (%s): %v", stmt, err)
		}
	}
}

func openMigrated(t *testing.T, path string) *DB {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(path, logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}

func TestEnsureSchemaFreshDatabase(t *testing.T) {
	db := newTestDB(t)

	tables := []string{
		"it_units", "applications", "infrastructure", "it_services", "audit_log",
		TableVendors, TableServiceTypes, TableCategories, TableSLALevels, TableServiceMethods,
	}
	for _, table := range tables {
		if n := countRows(t, db, table); n != 0 {
			t.Errorf("Expected empty %s, got %d rows", table, n)
		}
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := newTestDB(t)

	store := NewStore(db)
	if _, _, err := store.Units.Create("tester@example.com", ITUnit{Name: "Networks", ContactPerson: "Kim"}, false); err != nil {
		t.Fatalf("Failed to create unit: %v", err)
	}

	// A second pass over an up-to-date file must change nothing.
	for i := 0; i < 3; i++ {
		if err := db.EnsureSchema(); err != nil {
			t.Fatalf("EnsureSchema pass %d failed: %v", i+1, err)
		}
	}

	if n := countRows(t, db, "it_units"); n != 1 {
		t.Errorf("Expected 1 unit to survive repeated migration, got %d", n)
	}
}

func TestEnsureSchemaAddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	seedLegacyDB(t, path, []string{
		"CREATE TABLE it_units (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)",
		"INSERT INTO it_units (name) VALUES ('Service Desk')",
	})

	db := openMigrated(t, path)

	var fte int
	err := db.QueryRow("SELECT COALESCE(total_fte, 0) FROM it_units WHERE name = 'Service Desk'").Scan(&fte)
	if err != nil {
		t.Fatalf("Expected total_fte column to be added: %v", err)
	}
	if fte != 0 {
		t.Errorf("Expected added column to read as 0, got %d", fte)
	}
}

func TestEnsureSchemaRenamesLegacyTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	seedLegacyDB(t, path, []string{
		"CREATE TABLE assets (id INTEGER PRIMARY KEY, name TEXT NOT NULL, notes TEXT)",
		"INSERT INTO assets (name, notes) VALUES ('Core switch', 'rack 4')",
		"CREATE TABLE app_types (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)",
		"INSERT INTO app_types (name) VALUES ('SaaS')",
	})

	db := openMigrated(t, path)

	// assets became infrastructure and its notes column became description.
	var desc string
	err := db.QueryRow("SELECT description FROM infrastructure WHERE name = 'Core switch'").Scan(&desc)
	if err != nil {
		t.Fatalf("Expected assets row to survive as infrastructure: %v", err)
	}
	if desc != "rack 4" {
		t.Errorf("Expected notes text carried into description, got %q", desc)
	}

	var typeName string
	err = db.QueryRow("SELECT name FROM service_types WHERE name = 'SaaS'").Scan(&typeName)
	if err != nil {
		t.Fatalf("Expected app_types row to survive as service_types: %v", err)
	}
}

func TestEnsureSchemaRenamesOtherUnitsColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	seedLegacyDB(t, path, []string{
		"CREATE TABLE applications (id INTEGER PRIMARY KEY, name TEXT NOT NULL, other_units TEXT)",
		"INSERT INTO applications (name, other_units) VALUES ('Payroll', 'shared with HR')",
	})

	db := openMigrated(t, path)

	var desc string
	err := db.QueryRow("SELECT description FROM applications WHERE name = 'Payroll'").Scan(&desc)
	if err != nil {
		t.Fatalf("Expected other_units to be renamed to description: %v", err)
	}
	if desc != "shared with HR" {
		t.Errorf("Expected legacy text preserved, got %q", desc)
	}
}

func TestEnsureSchemaRebuildsApplicationsOnColumnClash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	seedLegacyDB(t, path, []string{
		"CREATE TABLE applications (id INTEGER PRIMARY KEY, name TEXT NOT NULL, other_units TEXT, description TEXT)",
		"INSERT INTO applications (name, other_units, description) VALUES ('CRM', 'legacy note', NULL)",
		"INSERT INTO applications (name, other_units, description) VALUES ('ERP', 'ignored', 'current note')",
	})

	db := openMigrated(t, path)

	cases := []struct {
		name, want string
	}{
		{"CRM", "legacy note"},  // description was NULL, legacy text wins
		{"ERP", "current note"}, // description present, legacy text discarded
	}
	for _, tc := range cases {
		var desc string
		err := db.QueryRow("SELECT COALESCE(description, '') FROM applications WHERE name = ?", tc.name).Scan(&desc)
		if err != nil {
			t.Fatalf("Failed to read rebuilt row %s: %v", tc.name, err)
		}
		if desc != tc.want {
			t.Errorf("%s: expected description %q, got %q", tc.name, tc.want, desc)
		}
	}

	// The rename-aside table must not survive the rebuild.
	var leftover string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='applications_old'").Scan(&leftover)
	if err != sql.ErrNoRows {
		t.Errorf("Expected applications_old to be dropped, scan returned %v", err)
	}
}

func TestRecoverDropsLeftoverRebuildTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	seedLegacyDB(t, path, []string{
		"CREATE TABLE applications (id INTEGER PRIMARY KEY, name TEXT NOT NULL, description TEXT)",
		"INSERT INTO applications (name) VALUES ('CRM')",
		"CREATE TABLE applications_old (id INTEGER PRIMARY KEY, name TEXT NOT NULL, other_units TEXT)",
	})

	db := openMigrated(t, path)

	var leftover string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='applications_old'").Scan(&leftover)
	if err != sql.ErrNoRows {
		t.Errorf("Expected leftover applications_old to be dropped, scan returned %v", err)
	}
	if n := countRows(t, db, "applications"); n != 1 {
		t.Errorf("Expected rebuilt table to keep its row, got %d", n)
	}
}

func TestRecoverRestoresOrphanedRebuildTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	seedLegacyDB(t, path, []string{
		"CREATE TABLE applications_old (id INTEGER PRIMARY KEY, name TEXT NOT NULL, other_units TEXT, description TEXT)",
		"INSERT INTO applications_old (name, other_units) VALUES ('CRM', 'legacy note')",
	})

	db := openMigrated(t, path)

	// The orphan is renamed back, then the normal rebuild runs over it.
	var desc string
	err := db.QueryRow("SELECT COALESCE(description, '') FROM applications WHERE name = 'CRM'").Scan(&desc)
	if err != nil {
		t.Fatalf("Expected orphaned rebuild table to be restored: %v", err)
	}
	if desc != "legacy note" {
		t.Errorf("Expected legacy text merged after recovery, got %q", desc)
	}
}
