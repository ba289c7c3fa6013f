package storage

import (
	"database/sql"
	"fmt"

	apperrors "portfolio/internal/errors"
)

// LookupItem is one row of a name-only reference table.
type LookupItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LookupRepository provides uniform operations over all lookup tables,
// parameterized by table name. Deleting an item leaves dependent rows with a
// dangling reference; listings render those as blank.
type LookupRepository struct {
	db    *DB
	audit *AuditLog
}

// NewLookupRepository creates a lookup repository.
func NewLookupRepository(db *DB, audit *AuditLog) *LookupRepository {
	return &LookupRepository{db: db, audit: audit}
}

// validTable guards every query: lookup table names are interpolated into
// SQL and must come from the known set.
func validTable(table string) error {
	for _, t := range LookupTables {
		if t == table {
			return nil
		}
	}
	return apperrors.Newf(apperrors.ValidationFailed, "unknown lookup table %q", table)
}

func (r *LookupRepository) itemType(table string) string {
	return "Lookup: " + table
}

// List returns all items alphabetically by name.
func (r *LookupRepository) List(table string) ([]LookupItem, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(fmt.Sprintf("SELECT id, name FROM %s ORDER BY name", table))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "list "+table, err)
	}
	defer rows.Close()

	var items []LookupItem
	for rows.Next() {
		var item LookupItem
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailure, "scan "+table+" row", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "iterate "+table+" rows", err)
	}
	return items, nil
}

// Add inserts a new item and returns its id. A duplicate name is a hard
// rejection, unlike IT Unit creation.
func (r *LookupRepository) Add(user, table, name string) (int64, error) {
	if err := validTable(table); err != nil {
		return 0, err
	}
	if err := requireText("name", name); err != nil {
		return 0, err
	}

	res, err := r.db.Exec(fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", table), name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.Newf(apperrors.DuplicateName, "%s %q already exists", table, name)
		}
		return 0, apperrors.Wrap(apperrors.StorageFailure, "insert into "+table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "read new "+table+" id", err)
	}

	if err := r.audit.Record(user, ActionCreate, r.itemType(table), name, ""); err != nil {
		return 0, err
	}
	return id, nil
}

// Rename updates an item's name in place.
func (r *LookupRepository) Rename(user, table string, id int64, newName string) error {
	if err := validTable(table); err != nil {
		return err
	}
	if err := requireText("name", newName); err != nil {
		return err
	}

	res, err := r.db.Exec(fmt.Sprintf("UPDATE %s SET name = ? WHERE id = ?", table), newName, id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Newf(apperrors.DuplicateName, "%s %q already exists", table, newName)
		}
		return apperrors.Wrap(apperrors.StorageFailure, "rename in "+table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "read rows affected", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.NotFound, "%s item %d not found", table, id)
	}

	return r.audit.Record(user, ActionUpdate, r.itemType(table), newName, "")
}

// Delete removes the item. Dependent rows are not touched.
func (r *LookupRepository) Delete(user, table string, id int64) error {
	if err := validTable(table); err != nil {
		return err
	}

	var name string
	err := r.db.QueryRow(fmt.Sprintf("SELECT name FROM %s WHERE id = ?", table), id).Scan(&name)
	if err == sql.ErrNoRows {
		return apperrors.Newf(apperrors.NotFound, "%s item %d not found", table, id)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "look up "+table+" item", err)
	}

	if _, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "delete from "+table, err)
	}

	return r.audit.Record(user, ActionDelete, r.itemType(table), name, "")
}

// IDByName resolves a display name to an id, for batch ingestion.
func (r *LookupRepository) IDByName(table, name string) (int64, error) {
	if err := validTable(table); err != nil {
		return 0, err
	}

	var id int64
	err := r.db.QueryRow(fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table), name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, apperrors.Newf(apperrors.ReferenceNotFound, "%s %q not found", table, name)
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "resolve "+table+" name", err)
	}
	return id, nil
}
