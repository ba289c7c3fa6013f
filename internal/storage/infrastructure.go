package storage

import (
	"database/sql"

	apperrors "portfolio/internal/errors"
)

const infrastructureItemType = "Infrastructure"

// Infrastructure is a physical or hosted asset owned by an IT Unit. The
// purchase_date and warranty_expiry fields are carried from earlier
// revisions: still accepted and shown, no longer required.
type Infrastructure struct {
	ID                    int64   `json:"id"`
	Name                  string  `json:"name"`
	ITUnitID              *int64  `json:"itUnitId"`
	VendorID              *int64  `json:"vendorId"`
	Location              string  `json:"location"`
	Status                string  `json:"status"`
	PurchaseDate          string  `json:"purchaseDate"`
	WarrantyExpiry        string  `json:"warrantyExpiry"`
	AnnualMaintenanceCost float64 `json:"annualMaintenanceCost"`
	Description           string  `json:"description"`
}

// InfrastructureRow is one listing row with referenced names resolved
// through LEFT JOINs.
type InfrastructureRow struct {
	Infrastructure
	ITUnitName string `json:"itUnitName"`
	VendorName string `json:"vendorName"`
}

// InfrastructureRepository provides CRUD operations for Infrastructure.
type InfrastructureRepository struct {
	db    *DB
	audit *AuditLog
}

// NewInfrastructureRepository creates a new Infrastructure repository.
func NewInfrastructureRepository(db *DB, audit *AuditLog) *InfrastructureRepository {
	return &InfrastructureRepository{db: db, audit: audit}
}

func (i *Infrastructure) validate() error {
	if err := requireText("name", i.Name); err != nil {
		return err
	}
	if err := requireRef("it_unit_id", i.ITUnitID); err != nil {
		return err
	}
	if err := validDate("purchase_date", i.PurchaseDate); err != nil {
		return err
	}
	if err := validDate("warranty_expiry", i.WarrantyExpiry); err != nil {
		return err
	}
	return nonNegativeFloat("annual_maintenance_cost", i.AnnualMaintenanceCost)
}

const infrastructureSelect = `
	SELECT i.id, i.name, i.it_unit_id, i.vendor_id,
	       COALESCE(i.location, ''), COALESCE(i.status, ''),
	       COALESCE(i.purchase_date, ''), COALESCE(i.warranty_expiry, ''),
	       COALESCE(i.annual_maintenance_cost, 0), COALESCE(i.description, ''),
	       COALESCE(u.name, ''), COALESCE(v.name, '')
	FROM infrastructure i
	LEFT JOIN it_units u ON u.id = i.it_unit_id
	LEFT JOIN vendors v ON v.id = i.vendor_id
`

func scanInfrastructureRow(scan func(...interface{}) error) (InfrastructureRow, error) {
	var row InfrastructureRow
	err := scan(
		&row.ID, &row.Name, &row.ITUnitID, &row.VendorID,
		&row.Location, &row.Status, &row.PurchaseDate, &row.WarrantyExpiry,
		&row.AnnualMaintenanceCost, &row.Description,
		&row.ITUnitName, &row.VendorName,
	)
	return row, err
}

// List returns all infrastructure alphabetically by name.
func (r *InfrastructureRepository) List() ([]InfrastructureRow, error) {
	rows, err := r.db.Query(infrastructureSelect + " ORDER BY i.name")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "list infrastructure", err)
	}
	defer rows.Close()

	var assets []InfrastructureRow
	for rows.Next() {
		row, err := scanInfrastructureRow(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailure, "scan infrastructure", err)
		}
		assets = append(assets, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "iterate infrastructure", err)
	}
	return assets, nil
}

// Get retrieves one asset by id.
func (r *InfrastructureRepository) Get(id int64) (*InfrastructureRow, error) {
	row, err := scanInfrastructureRow(r.db.QueryRow(infrastructureSelect+" WHERE i.id = ?", id).Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.NotFound, "infrastructure %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "get infrastructure", err)
	}
	return &row, nil
}

// Create inserts a new asset and returns its id.
func (r *InfrastructureRepository) Create(user string, i Infrastructure, bulk bool) (int64, error) {
	if err := i.validate(); err != nil {
		return 0, err
	}

	res, err := r.db.Exec(`
		INSERT INTO infrastructure (name, it_unit_id, vendor_id, location, status,
		                            purchase_date, warranty_expiry,
		                            annual_maintenance_cost, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, i.Name, refOrNull(i.ITUnitID), refOrNull(i.VendorID), nullIfEmpty(i.Location),
		nullIfEmpty(i.Status), nullIfEmpty(i.PurchaseDate), nullIfEmpty(i.WarrantyExpiry),
		i.AnnualMaintenanceCost, nullIfEmpty(i.Description))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "insert infrastructure", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "read new infrastructure id", err)
	}

	details := ""
	if bulk {
		details = BulkImportDetail
	}
	if err := r.audit.Record(user, ActionCreate, infrastructureItemType, i.Name, details); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites all fields of an existing asset.
func (r *InfrastructureRepository) Update(user string, i Infrastructure) error {
	if err := i.validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(`
		UPDATE infrastructure
		SET name = ?, it_unit_id = ?, vendor_id = ?, location = ?, status = ?,
		    purchase_date = ?, warranty_expiry = ?,
		    annual_maintenance_cost = ?, description = ?
		WHERE id = ?
	`, i.Name, refOrNull(i.ITUnitID), refOrNull(i.VendorID), nullIfEmpty(i.Location),
		nullIfEmpty(i.Status), nullIfEmpty(i.PurchaseDate), nullIfEmpty(i.WarrantyExpiry),
		i.AnnualMaintenanceCost, nullIfEmpty(i.Description), i.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "update infrastructure", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "read rows affected", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.NotFound, "infrastructure %d not found", i.ID)
	}

	return r.audit.Record(user, ActionUpdate, infrastructureItemType, i.Name, "")
}

// Delete removes an asset.
func (r *InfrastructureRepository) Delete(user string, id int64) error {
	var name string
	err := r.db.QueryRow("SELECT name FROM infrastructure WHERE id = ?", id).Scan(&name)
	if err == sql.ErrNoRows {
		return apperrors.Newf(apperrors.NotFound, "infrastructure %d not found", id)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "look up infrastructure", err)
	}

	if _, err := r.db.Exec("DELETE FROM infrastructure WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "delete infrastructure", err)
	}

	return r.audit.Record(user, ActionDelete, infrastructureItemType, name, "")
}
