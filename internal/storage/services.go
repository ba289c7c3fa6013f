package storage

import (
	"database/sql"

	apperrors "portfolio/internal/errors"
)

const serviceItemType = "IT Service"

// ITService is a service an IT Unit provides to the rest of the
// organization. Names are not unique: several units may each run a
// same-named service, which is exactly what the overlap report surfaces.
type ITService struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ITUnitID         *int64  `json:"itUnitId"`
	Status           string  `json:"status"`
	ServiceOwner     string  `json:"serviceOwner"`
	FTECount         int     `json:"fteCount"`
	BudgetAllocation float64 `json:"budgetAllocation"`
	SLALevelID       *int64  `json:"slaLevelId"`
	ServiceMethodID  *int64  `json:"serviceMethodId"`
	Description      string  `json:"description"`
	Dependencies     string  `json:"dependencies"`
}

// ITServiceRow is one listing row with referenced names resolved through
// LEFT JOINs.
type ITServiceRow struct {
	ITService
	ITUnitName        string `json:"itUnitName"`
	SLALevelName      string `json:"slaLevelName"`
	ServiceMethodName string `json:"serviceMethodName"`
}

// ServiceRepository provides CRUD operations for IT Services.
type ServiceRepository struct {
	db    *DB
	audit *AuditLog
}

// NewServiceRepository creates a new IT Service repository.
func NewServiceRepository(db *DB, audit *AuditLog) *ServiceRepository {
	return &ServiceRepository{db: db, audit: audit}
}

func (s *ITService) validate() error {
	if err := requireText("name", s.Name); err != nil {
		return err
	}
	if err := requireRef("it_unit_id", s.ITUnitID); err != nil {
		return err
	}
	if err := nonNegativeInt("fte_count", s.FTECount); err != nil {
		return err
	}
	return nonNegativeFloat("budget_allocation", s.BudgetAllocation)
}

const serviceSelect = `
	SELECT s.id, s.name, s.it_unit_id,
	       COALESCE(s.status, ''), COALESCE(s.service_owner, ''),
	       COALESCE(s.fte_count, 0), COALESCE(s.budget_allocation, 0),
	       s.sla_level_id, s.service_method_id,
	       COALESCE(s.description, ''), COALESCE(s.dependencies, ''),
	       COALESCE(u.name, ''), COALESCE(l.name, ''), COALESCE(m.name, '')
	FROM it_services s
	LEFT JOIN it_units u ON u.id = s.it_unit_id
	LEFT JOIN sla_levels l ON l.id = s.sla_level_id
	LEFT JOIN service_methods m ON m.id = s.service_method_id
`

func scanServiceRow(scan func(...interface{}) error) (ITServiceRow, error) {
	var row ITServiceRow
	err := scan(
		&row.ID, &row.Name, &row.ITUnitID, &row.Status, &row.ServiceOwner,
		&row.FTECount, &row.BudgetAllocation, &row.SLALevelID, &row.ServiceMethodID,
		&row.Description, &row.Dependencies,
		&row.ITUnitName, &row.SLALevelName, &row.ServiceMethodName,
	)
	return row, err
}

// List returns all services ordered by name, then by providing unit so
// same-named services group together.
func (r *ServiceRepository) List() ([]ITServiceRow, error) {
	rows, err := r.db.Query(serviceSelect + " ORDER BY s.name, u.name")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "list it services", err)
	}
	defer rows.Close()

	var services []ITServiceRow
	for rows.Next() {
		row, err := scanServiceRow(rows.Scan)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailure, "scan it service", err)
		}
		services = append(services, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "iterate it services", err)
	}
	return services, nil
}

// Get retrieves one service by id.
func (r *ServiceRepository) Get(id int64) (*ITServiceRow, error) {
	row, err := scanServiceRow(r.db.QueryRow(serviceSelect+" WHERE s.id = ?", id).Scan)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.NotFound, "it service %d not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "get it service", err)
	}
	return &row, nil
}

// Create inserts a new service and returns its id.
func (r *ServiceRepository) Create(user string, s ITService, bulk bool) (int64, error) {
	if err := s.validate(); err != nil {
		return 0, err
	}

	res, err := r.db.Exec(`
		INSERT INTO it_services (name, it_unit_id, status, service_owner, fte_count,
		                         budget_allocation, sla_level_id, service_method_id,
		                         description, dependencies)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.Name, refOrNull(s.ITUnitID), nullIfEmpty(s.Status), nullIfEmpty(s.ServiceOwner),
		s.FTECount, s.BudgetAllocation, refOrNull(s.SLALevelID), refOrNull(s.ServiceMethodID),
		nullIfEmpty(s.Description), nullIfEmpty(s.Dependencies))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "insert it service", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.StorageFailure, "read new it service id", err)
	}

	details := ""
	if bulk {
		details = BulkImportDetail
	}
	if err := r.audit.Record(user, ActionCreate, serviceItemType, s.Name, details); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites all fields of an existing service.
func (r *ServiceRepository) Update(user string, s ITService) error {
	if err := s.validate(); err != nil {
		return err
	}

	res, err := r.db.Exec(`
		UPDATE it_services
		SET name = ?, it_unit_id = ?, status = ?, service_owner = ?, fte_count = ?,
		    budget_allocation = ?, sla_level_id = ?, service_method_id = ?,
		    description = ?, dependencies = ?
		WHERE id = ?
	`, s.Name, refOrNull(s.ITUnitID), nullIfEmpty(s.Status), nullIfEmpty(s.ServiceOwner),
		s.FTECount, s.BudgetAllocation, refOrNull(s.SLALevelID), refOrNull(s.ServiceMethodID),
		nullIfEmpty(s.Description), nullIfEmpty(s.Dependencies), s.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "update it service", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "read rows affected", err)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.NotFound, "it service %d not found", s.ID)
	}

	return r.audit.Record(user, ActionUpdate, serviceItemType, s.Name, "")
}

// Delete removes a service.
func (r *ServiceRepository) Delete(user string, id int64) error {
	var name string
	err := r.db.QueryRow("SELECT name FROM it_services WHERE id = ?", id).Scan(&name)
	if err == sql.ErrNoRows {
		return apperrors.Newf(apperrors.NotFound, "it service %d not found", id)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "look up it service", err)
	}

	if _, err := r.db.Exec("DELETE FROM it_services WHERE id = ?", id); err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "delete it service", err)
	}

	return r.audit.Record(user, ActionDelete, serviceItemType, name, "")
}
