package storage

import (
	"database/sql"
	"fmt"
)

// Lookup table names. These are the only tables the lookup repository
// will address; everything else rejects the table name.
const (
	TableVendors        = "vendors"
	TableServiceTypes   = "service_types"
	TableCategories     = "categories"
	TableSLALevels      = "sla_levels"
	TableServiceMethods = "service_methods"
)

// LookupTables lists every lookup table in creation order.
var LookupTables = []string{
	TableVendors,
	TableServiceTypes,
	TableCategories,
	TableSLALevels,
	TableServiceMethods,
}

// column describes one column the current model requires.
type column struct {
	name string
	typ  string
}

// Required columns per entity table, beyond the minimal (id, name) core.
// All are added nullable so the patch is purely additive.
var (
	itUnitColumns = []column{
		{"contact_person", "TEXT"},
		{"contact_email", "TEXT"},
		{"notes", "TEXT"},
		{"total_fte", "INTEGER"},
		{"budget_amount", "REAL"},
	}

	applicationColumns = []column{
		{"it_unit_id", "INTEGER"},
		{"vendor_id", "INTEGER"},
		{"renewal_date", "TEXT"},
		{"annual_cost", "REAL"},
		{"service_type_id", "INTEGER"},
		{"category_id", "INTEGER"},
		{"integrations", "TEXT"},
		{"description", "TEXT"},
		{"similar_applications", "TEXT"},
		{"service_owner", "TEXT"},
		{"status", "TEXT"},
	}

	infrastructureColumns = []column{
		{"it_unit_id", "INTEGER"},
		{"vendor_id", "INTEGER"},
		{"location", "TEXT"},
		{"status", "TEXT"},
		{"purchase_date", "TEXT"},
		{"warranty_expiry", "TEXT"},
		{"annual_maintenance_cost", "REAL"},
		{"description", "TEXT"},
	}

	itServiceColumns = []column{
		{"it_unit_id", "INTEGER"},
		{"fte_count", "INTEGER"},
		{"dependencies", "TEXT"},
		{"service_owner", "TEXT"},
		{"status", "TEXT"},
		{"sla_level_id", "INTEGER"},
		{"service_method_id", "INTEGER"},
		{"budget_allocation", "REAL"},
	}
)

// legacy table names from earlier product revisions, renamed in place
// before any column patching runs.
var legacyTableRenames = map[string]string{
	"assets":    "infrastructure",
	"app_types": TableServiceTypes,
}

// EnsureSchema brings the database file to the current expected structure
// without destroying data. There is no version ledger: the live structure
// is introspected and patched forward on every startup. The whole pass runs
// in one transaction, so a failure leaves the file untouched. Running it any
// number of times is side-effect-free beyond the first necessary pass.
func (db *DB) EnsureSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := recoverApplicationsRebuild(tx); err != nil {
			return err
		}

		for _, name := range LookupTables {
			if _, err := tx.Exec(fmt.Sprintf(
				"CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)", name)); err != nil {
				return fmt.Errorf("create %s table: %w", name, err)
			}
		}

		if err := applyLegacyTableRenames(tx); err != nil {
			return err
		}

		if err := ensureITUnits(tx); err != nil {
			return err
		}
		if err := ensureApplications(tx); err != nil {
			return err
		}
		if err := ensureITServices(tx); err != nil {
			return err
		}
		if err := ensureInfrastructure(tx); err != nil {
			return err
		}
		if err := ensureAuditLog(tx); err != nil {
			return err
		}

		return nil
	})
}

// recoverApplicationsRebuild finishes a rebuild interrupted before the
// transactional rebuild existed. A leftover applications_old table next to
// a rebuilt applications table is debris and is dropped; an orphaned
// applications_old without the target table is renamed back so the normal
// delta detection re-runs the rebuild.
func recoverApplicationsRebuild(tx *sql.Tx) error {
	oldExists, err := tableExists(tx, "applications_old")
	if err != nil {
		return err
	}
	if !oldExists {
		return nil
	}

	newExists, err := tableExists(tx, "applications")
	if err != nil {
		return err
	}
	if newExists {
		if _, err := tx.Exec("DROP TABLE applications_old"); err != nil {
			return fmt.Errorf("drop leftover applications_old: %w", err)
		}
		return nil
	}
	if _, err := tx.Exec("ALTER TABLE applications_old RENAME TO applications"); err != nil {
		return fmt.Errorf("restore applications from applications_old: %w", err)
	}
	return nil
}

// applyLegacyTableRenames renames whole tables carried over from earlier
// revisions. The old name is checked before the new one so a fresh file is
// untouched.
func applyLegacyTableRenames(tx *sql.Tx) error {
	for oldName, newName := range legacyTableRenames {
		oldExists, err := tableExists(tx, oldName)
		if err != nil {
			return err
		}
		if !oldExists {
			continue
		}
		newExists, err := tableExists(tx, newName)
		if err != nil {
			return err
		}
		if newExists {
			continue
		}
		if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", oldName, newName)); err != nil {
			return fmt.Errorf("rename table %s to %s: %w", oldName, newName, err)
		}
	}
	return nil
}

func ensureITUnits(tx *sql.Tx) error {
	if _, err := tx.Exec(
		"CREATE TABLE IF NOT EXISTS it_units (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)"); err != nil {
		return fmt.Errorf("create it_units table: %w", err)
	}
	return addMissingColumns(tx, "it_units", itUnitColumns)
}

func ensureApplications(tx *sql.Tx) error {
	if _, err := tx.Exec(
		"CREATE TABLE IF NOT EXISTS applications (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"); err != nil {
		return fmt.Errorf("create applications table: %w", err)
	}

	cols, err := tableColumns(tx, "applications")
	if err != nil {
		return err
	}

	// Two revisions carried application notes under other_units. When both
	// columns exist the table has to be rebuilt to merge them; when only the
	// legacy column exists a rename is enough.
	switch {
	case cols["other_units"] && cols["description"]:
		// Patch the current columns in first so the rebuild's copy query can
		// select every target column.
		if err := addMissingColumns(tx, "applications", applicationColumns); err != nil {
			return err
		}
		if err := rebuildApplications(tx); err != nil {
			return err
		}
	case cols["other_units"]:
		if _, err := tx.Exec("ALTER TABLE applications RENAME COLUMN other_units TO description"); err != nil {
			return fmt.Errorf("rename applications.other_units: %w", err)
		}
	}

	return addMissingColumns(tx, "applications", applicationColumns)
}

// rebuildApplications renames the table aside, recreates it with the target
// structure, copies every row across (preferring description over the legacy
// other_units text), and drops the renamed-aside table. The caller's
// transaction makes the sequence atomic.
func rebuildApplications(tx *sql.Tx) error {
	if _, err := tx.Exec("ALTER TABLE applications RENAME TO applications_old"); err != nil {
		return fmt.Errorf("rename applications aside: %w", err)
	}
	if _, err := tx.Exec(`
		CREATE TABLE applications (
			id INTEGER PRIMARY KEY, name TEXT NOT NULL, it_unit_id INTEGER, vendor_id INTEGER,
			renewal_date TEXT, annual_cost REAL, service_type_id INTEGER, category_id INTEGER,
			integrations TEXT, description TEXT, similar_applications TEXT, service_owner TEXT
		)
	`); err != nil {
		return fmt.Errorf("recreate applications table: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO applications (id, name, it_unit_id, vendor_id, renewal_date, annual_cost,
		                          service_type_id, category_id, integrations, description,
		                          similar_applications, service_owner)
		SELECT id, name, it_unit_id, vendor_id, renewal_date, annual_cost,
		       service_type_id, category_id, integrations,
		       COALESCE(description, other_units),
		       similar_applications, service_owner
		FROM applications_old
	`); err != nil {
		return fmt.Errorf("copy applications rows: %w", err)
	}
	if _, err := tx.Exec("DROP TABLE applications_old"); err != nil {
		return fmt.Errorf("drop applications_old: %w", err)
	}
	return nil
}

func ensureITServices(tx *sql.Tx) error {
	if _, err := tx.Exec(
		"CREATE TABLE IF NOT EXISTS it_services (id INTEGER PRIMARY KEY, name TEXT NOT NULL, description TEXT)"); err != nil {
		return fmt.Errorf("create it_services table: %w", err)
	}
	return addMissingColumns(tx, "it_services", itServiceColumns)
}

func ensureInfrastructure(tx *sql.Tx) error {
	if _, err := tx.Exec(
		"CREATE TABLE IF NOT EXISTS infrastructure (id INTEGER PRIMARY KEY, name TEXT NOT NULL)"); err != nil {
		return fmt.Errorf("create infrastructure table: %w", err)
	}

	cols, err := tableColumns(tx, "infrastructure")
	if err != nil {
		return err
	}
	if cols["notes"] && !cols["description"] {
		if _, err := tx.Exec("ALTER TABLE infrastructure RENAME COLUMN notes TO description"); err != nil {
			return fmt.Errorf("rename infrastructure.notes: %w", err)
		}
	}

	return addMissingColumns(tx, "infrastructure", infrastructureColumns)
}

func ensureAuditLog(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY, timestamp TEXT NOT NULL, user_email TEXT NOT NULL,
			action TEXT NOT NULL, item_type TEXT NOT NULL, item_name TEXT NOT NULL, details TEXT
		)
	`); err != nil {
		return fmt.Errorf("create audit_log table: %w", err)
	}
	return nil
}

// addMissingColumns introspects the table and adds every required column
// that is absent. Columns are only ever added, never altered or dropped.
func addMissingColumns(tx *sql.Tx, table string, required []column) error {
	existing, err := tableColumns(tx, table)
	if err != nil {
		return err
	}
	for _, col := range required {
		if existing[col.name] {
			continue
		}
		if _, err := tx.Exec(fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.typ)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, col.name, err)
		}
	}
	return nil
}

// tableExists reports whether a table with the given name exists.
func tableExists(tx *sql.Tx, name string) (bool, error) {
	var found string
	err := tx.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return true, nil
}

// tableColumns returns the set of column names currently on the table.
func tableColumns(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column info for %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column info for %s: %w", table, err)
	}
	return cols, nil
}
