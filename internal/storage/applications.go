package storage

import (
	"database/sql"

	apperrors "portfolio/internal/errors"
)

const applicationItemType = "Application"

// Application is a software product owned by an IT Unit.
type Application struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	ITUnitID            *int64  `json:"itUnitId"`
	VendorID            *int64  `json:"vendorId"`
	CategoryID          *int64  `json:"categoryId"`
	ServiceTypeID       *int64  `json:"serviceTypeId"`
	AnnualCost          float64 `json:"annualCost"`
	RenewalDate         string  `json:"renewalDate"`
	Integrations        string  `json:"integrations"`
	Description         string  `json:"description"`
	SimilarApplications string  `json:"similarApplications"`
	ServiceOwner        string  `json:"serviceOwner"`
	Status              string  `json:"status"`
}

// ApplicationRow is one listing row with referenced names resolved. Every
// reference is read through a LEFT JOIN: a lookup row or unit deleted out
// from under a reference must never make the application disappear from
// listings, so the joined names stay blank instead.
type ApplicationRow struct {
	Application
	ITUnitName      string `json:"itUnitName"`
	VendorName      string `json:"vendorName"`
	CategoryName    string `json:"categoryName"`
	ServiceTypeName string `json:"serviceTypeName"`
}

// ApplicationRepository provides CRUD operations for Applications.
type ApplicationRepository struct {
	db    *DB
	audit *AuditLog
}

// NewApplicationRepository creates a new Application repository.
func NewApplicationRepository(db *DB, audit *AuditLog) *ApplicationRepository {
	return &ApplicationRepository{db: db, audit: audit}
}

func (a *Application) validate() error {
	if err := requireText("name", a.Name); err != nil {
		return err
	}
	if err := requireRef("it_unit_id", a.ITUnitID); err != nil {
		return err
	}
	if err := requireRef("vendor_id", a.VendorID); err != nil {
		return err
	}
	if err := requireRef("category_id", a.CategoryID); err != nil {
		return err
	}
	if err := nonNegativeFloat("annual_cost", a.AnnualCost); err != nil {
		return err
	}
	return validDate("renewal_date", a.RenewalDate)
}

const applicationSelect = `
	SELECT a.id, a.name, a.it_unit_id, a.vendor_id, a.category_id, a.service_type_id,
	       COALESCE(a.annual_cost, 0), COALESCE(a.renewal_date, ''),
	       COALESCE(a.integrations, ''), COALESCE(a.description, ''),
	       COALESCE(a.similar_applications, ''), COALESCE(a.service_owner, ''),
	       COALESCE(a.status, ''),
	       COALESCE(u.name, ''), COALESCE(v.name, ''), COALESCE(c.name, ''), COALESCE(t.name, '')
	FROM applications a
	LEFT JOIN it_units u ON u.id = a.it_unit_id
	LEFT JOIN vendors v ON v.id = a.vendor_id
	LEFT JOIN categories c ON c.id = a.category_id
	LEFT JOIN service_types t ON t.id = a.service_type_id
`

func scanApplicationRow(scan func(...interface{}) error) (ApplicationRow, error) {
	var row ApplicationRow
	err := scan(
		&row.ID, &row.Name, &row.ITUnitID, &row.VendorID, &row.CategoryID, &row.ServiceTypeID,
		&row.AnnualCost, &row.RenewalDate, &row.Integrations, &row.Description,
		&row.SimilarApplications, &row.ServiceOwner, &row.Status,
		&row.ITUnitName, &row.VendorName, &row.CategoryName, &row.ServiceTypeName,
	)
	return row, err
}

// List returns all applications alphabetically by name, with referenced
// names resolved.
func (r *ApplicationRepository) List() ([]ApplicationRow, error) {
	rows, err := r.db.Query(applicationSelect + " ORDER BY a.name")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "list applications", err)
	}
	defer rows.Close()

	var apps []ApplicationRow
	for rows.Next() {
		row, err := scanApplicationRow(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailure, "scan application", err)
		}
		apps = append(apps, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "iterate applications", err)
	}
	return apps, nil
}

// Get retrieves one application by id.
func (r *ApplicationRepository) Get(id int64) (*ApplicationRow, error) {
	row, err := scanApplicationRow(r.db.QueryRow(applicationSelect+" WHERE a.id = ?", id).Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.NotFound, "application %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "get application", err)
	}
	return &row, nil
}

// Create inserts a new application and returns its id.
func (r *ApplicationRepository) Create(user string, a Application, bulk bool) (int64, error) {
	if err := a.validate(); err != nil {
		return 0, err
	}

	res, err := r.db.Exec(`
		INSERT INTO applications (name, it_unit_id, vendor_id, category_id, service_type_id,
		                          annual_cost, renewal_date, integrations, description,
		                          similar_applications, service_owner, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Name, refOrNull(a.ITUnitID), refOrNull(a.VendorID), refOrNull(a.CategoryID), refOrNull(a.ServiceTypeID),
		a.AnnualCost, nullIfEmpty(a.RenewalDate), nullIfEmpty(a.Integrations), nullIfEmpty(a.Description),
		nullIfEmpty(a.SimilarApplications), nullIfEmpty(a.ServiceOwner), nullIfEmpty(a.Status))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "insert application", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "read new application id", err)
	}

	details := ""
	if bulk {
		details = BulkImportDetail
	}
	if err := r.audit.Record(user, ActionCreate, applicationItemType, a.Name, details); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites all fields of an existing application.
func (r *ApplicationRepository) Update(user string, a Application) error {
	if err := a.validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(`
		UPDATE applications
		SET name = ?, it_unit_id = ?, vendor_id = ?, category_id = ?, service_type_id = ?,
		    annual_cost = ?, renewal_date = ?, integrations = ?, description = ?,
		    similar_applications = ?, service_owner = ?, status = ?
		WHERE id = ?
	`, a.Name, refOrNull(a.ITUnitID), refOrNull(a.VendorID), refOrNull(a.CategoryID), refOrNull(a.ServiceTypeID),
		a.AnnualCost, nullIfEmpty(a.RenewalDate), nullIfEmpty(a.Integrations), nullIfEmpty(a.Description),
		nullIfEmpty(a.SimilarApplications), nullIfEmpty(a.ServiceOwner), nullIfEmpty(a.Status), a.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "update application", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "read rows affected", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.NotFound, "application %d not found", a.ID)
	}

	return r.audit.Record(user, ActionUpdate, applicationItemType, a.Name, "")
}

// Delete removes an application.
func (r *ApplicationRepository) Delete(user string, id int64) error {
	var name string
	err := r.db.QueryRow("SELECT name FROM applications WHERE id = ?", id).Scan(&name)
	if err == sql.ErrNoRows {
		return apperrors.Newf(apperrors.NotFound, "application %d not found", id)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "look up application", err)
	}

	if _, err := r.db.Exec("DELETE FROM applications WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "delete application", err)
	}

	return r.audit.Record(user, ActionDelete, applicationItemType, name, "")
}
