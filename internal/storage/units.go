package storage

import (
	"database/sql"

	apperrors "portfolio/internal/errors"
)

const unitItemType = "IT Unit"

// ITUnit is an internal IT team or department.
type ITUnit struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	ContactPerson string  `json:"contactPerson"`
	ContactEmail  string  `json:"contactEmail"`
	Notes         string  `json:"notes"`
	TotalFTE      int     `json:"totalFte"`
	BudgetAmount  float64 `json:"budgetAmount"`
}

// UnitRepository provides CRUD operations for IT Units.
type UnitRepository struct {
	db    *DB
	audit *AuditLog
}

// NewUnitRepository creates a new IT Unit repository.
func NewUnitRepository(db *DB, audit *AuditLog) *UnitRepository {
	return &UnitRepository{db: db, audit: audit}
}

func (u *ITUnit) validate() error {
	if err := requireText("name", u.Name); err != nil {
		return err
	}
	if err := requireText("contact_person", u.ContactPerson); err != nil {
		return err
	}
	if err := nonNegativeInt("total_fte", u.TotalFTE); err != nil {
		return err
	}
	return nonNegativeFloat("budget_amount", u.BudgetAmount)
}

// List returns all IT Units alphabetically by name.
func (r *UnitRepository) List() ([]ITUnit, error) {
	rows, err := r.db.Query(`
		SELECT id, name, COALESCE(contact_person, ''), COALESCE(contact_email, ''),
		       COALESCE(notes, ''), COALESCE(total_fte, 0), COALESCE(budget_amount, 0)
		FROM it_units
		ORDER BY name
	`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "list it units", err)
	}
	defer rows.Close()

	var units []ITUnit
	for rows.Next() {
		var u ITUnit
		if err := rows.Scan(&u.ID, &u.Name, &u.ContactPerson, &u.ContactEmail, &u.Notes, &u.TotalFTE, &u.BudgetAmount); err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailure, "scan it unit", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "iterate it units", err)
	}
	return units, nil
}

// Get retrieves one IT Unit by id.
func (r *UnitRepository) Get(id int64) (*ITUnit, error) {
	var u ITUnit
	err := r.db.QueryRow(`
		SELECT id, name, COALESCE(contact_person, ''), COALESCE(contact_email, ''),
		       COALESCE(notes, ''), COALESCE(total_fte, 0), COALESCE(budget_amount, 0)
		FROM it_units
		WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.ContactPerson, &u.ContactEmail, &u.Notes, &u.TotalFTE, &u.BudgetAmount)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.NotFound, "it unit %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "get it unit", err)
	}
	return &u, nil
}

// IDByName resolves a unit's display name to its id, for batch ingestion.
func (r *UnitRepository) IDByName(name string) (int64, error) {
	var id int64
	err := r.db.QueryRow("SELECT id FROM it_units WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, apperrors.Newf(apperrors.ReferenceNotFound, "it unit %q not found", name)
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "resolve it unit name", err)
	}
	return id, nil
}

// Create inserts a new IT Unit and returns its id. Creating a unit whose
// name already exists is not an error: the existing id is returned with
// created=false so the caller can surface a warning.
func (r *UnitRepository) Create(user string, u ITUnit, bulk bool) (id int64, created bool, err error) {
	if err := u.validate(); err != nil {
		return 0, false, err
	}

	var existing int64
	err = r.db.QueryRow("SELECT id FROM it_units WHERE name = ?", u.Name).Scan(&existing)
	if err == nil {
		r.db.logger.Warn("it unit already exists, reusing id", "name", u.Name, "id", existing)
		return existing, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, apperrors.Wrap(apperrors.StorageFailure, "check it unit name", err)
	}

	res, err := r.db.Exec(`
		INSERT INTO it_units (name, contact_person, contact_email, total_fte, budget_amount, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Name, u.ContactPerson, nullIfEmpty(u.ContactEmail), u.TotalFTE, u.BudgetAmount, nullIfEmpty(u.Notes))
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent create of the same name.
			if qerr := r.db.QueryRow("SELECT id FROM it_units WHERE name = ?", u.Name).Scan(&existing); qerr == nil {
				return existing, false, nil
			}
		}
		return 0, false, apperrors.Wrap(apperrors.StorageFailure, "insert it unit", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, apperrors.Wrap(apperrors.StorageFailure, "read new it unit id", err)
	}

	details := ""
	if bulk {
		details = BulkImportDetail
	}
	if err := r.audit.Record(user, ActionCreate, unitItemType, u.Name, details); err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Update rewrites all fields of an existing IT Unit.
func (r *UnitRepository) Update(user string, u ITUnit) error {
	if err := u.validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(`
		UPDATE it_units
		SET name = ?, contact_person = ?, contact_email = ?, total_fte = ?, budget_amount = ?, notes = ?
		WHERE id = ?
	`, u.Name, u.ContactPerson, nullIfEmpty(u.ContactEmail), u.TotalFTE, u.BudgetAmount, nullIfEmpty(u.Notes), u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Newf(apperrors.DuplicateName, "it unit %q already exists", u.Name)
		}
		return apperrors.Wrap(apperrors.StorageFailure, "update it unit", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "read rows affected", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.NotFound, "it unit %d not found", u.ID)
	}

	return r.audit.Record(user, ActionUpdate, unitItemType, u.Name, "")
}

// Delete removes an IT Unit. Applications, infrastructure, and services that
// referenced it keep their rows but have the reference cleared, inside the
// same transaction as the unit's removal.
func (r *UnitRepository) Delete(user string, id int64) error {
	unit, err := r.Get(id)
	if err != nil {
		return err
	}

	err = r.db.WithTx(func(tx *sql.Tx) error {
		for _, table := range []string{"applications", "it_services", "infrastructure"} {
			if _, err := tx.Exec("UPDATE "+table+" SET it_unit_id = NULL WHERE it_unit_id = ?", id); err != nil {
				return apperrors.Wrap(apperrors.StorageFailure, "clear it unit references on "+table, err)
			}
		}
		if _, err := tx.Exec("DELETE FROM it_units WHERE id = ?", id); err != nil {
			return apperrors.Wrap(apperrors.StorageFailure, "delete it unit", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return r.audit.Record(user, ActionDelete, unitItemType, unit.Name, "")
}
