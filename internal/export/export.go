// Package export renders repository listings as CSV, matching the column
// sets the listings show, with optional gzip compression for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/storage"
)

// Table is a materialized listing ready for CSV encoding.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Entity names accepted by Exporter.Table.
const (
	EntityUnits          = "units"
	EntityApplications   = "applications"
	EntityInfrastructure = "infrastructure"
	EntityServices       = "services"
	EntityAudit          = "audit"
)

// Entities lists every exportable entity.
var Entities = []string{
	EntityUnits, EntityApplications, EntityInfrastructure, EntityServices, EntityAudit,
}

// Exporter converts store listings into tables.
type Exporter struct {
	store *storage.Store
}

// NewExporter creates an exporter over the store.
func NewExporter(store *storage.Store) *Exporter {
	return &Exporter{store: store}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// UnitsTable renders IT Units.
func UnitsTable(units []storage.ITUnit) Table {
	t := Table{Headers: []string{
		"name", "contact_person", "contact_email", "total_fte", "budget_amount", "notes",
	}}
	for _, u := range units {
		t.Rows = append(t.Rows, []string{
			u.Name, u.ContactPerson, u.ContactEmail,
			strconv.Itoa(u.TotalFTE), money(u.BudgetAmount), u.Notes,
		})
	}
	return t
}

// ApplicationsTable renders applications with referenced names resolved.
func ApplicationsTable(apps []storage.ApplicationRow) Table {
	t := Table{Headers: []string{
		"name", "service_owner", "managing_it_unit_name", "vendor_name", "type_name",
		"category_name", "annual_cost", "renewal_date", "integrations", "description",
		"similar_applications", "status",
	}}
	for _, a := range apps {
		t.Rows = append(t.Rows, []string{
			a.Name, a.ServiceOwner, a.ITUnitName, a.VendorName, a.ServiceTypeName,
			a.CategoryName, money(a.AnnualCost), a.RenewalDate, a.Integrations,
			a.Description, a.SimilarApplications, a.Status,
		})
	}
	return t
}

// InfrastructureTable renders infrastructure assets.
func InfrastructureTable(assets []storage.InfrastructureRow) Table {
	t := Table{Headers: []string{
		"name", "managing_it_unit_name", "vendor_name", "location", "status",
		"purchase_date", "warranty_expiry", "annual_maintenance_cost", "description",
	}}
	for _, a := range assets {
		t.Rows = append(t.Rows, []string{
			a.Name, a.ITUnitName, a.VendorName, a.Location, a.Status,
			a.PurchaseDate, a.WarrantyExpiry, money(a.AnnualMaintenanceCost), a.Description,
		})
	}
	return t
}

// ServicesTable renders IT services.
func ServicesTable(services []storage.ITServiceRow) Table {
	t := Table{Headers: []string{
		"name", "providing_it_unit_name", "status", "service_owner", "fte_count",
		"budget_allocation", "sla_level_name", "service_method_name", "description",
		"dependencies",
	}}
	for _, s := range services {
		t.Rows = append(t.Rows, []string{
			s.Name, s.ITUnitName, s.Status, s.ServiceOwner, strconv.Itoa(s.FTECount),
			money(s.BudgetAllocation), s.SLALevelName, s.ServiceMethodName,
			s.Description, s.Dependencies,
		})
	}
	return t
}

// AuditTable renders audit records, newest first as the query returned them.
func AuditTable(records []storage.AuditRecord) Table {
	t := Table{Headers: []string{
		"timestamp", "user_email", "action", "item_type", "item_name", "details",
	}}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.UserEmail, r.Action, r.ItemType, r.ItemName, r.Details,
		})
	}
	return t
}

// Table materializes one entity's listing.
func (e *Exporter) Table(entity string) (Table, error) {
	switch entity {
	case EntityUnits:
		units, err := e.store.Units.List()
		if err != nil {
			return Table{}, err
		}
		return UnitsTable(units), nil
	case EntityApplications:
		apps, err := e.store.Applications.List()
		if err != nil {
			return Table{}, err
		}
		return ApplicationsTable(apps), nil
	case EntityInfrastructure:
		assets, err := e.store.Infrastructure.List()
		if err != nil {
			return Table{}, err
		}
		return InfrastructureTable(assets), nil
	case EntityServices:
		services, err := e.store.Services.List()
		if err != nil {
			return Table{}, err
		}
		return ServicesTable(services), nil
	case EntityAudit:
		records, err := e.store.Audit.Query(storage.AuditFilter{})
		if err != nil {
			return Table{}, err
		}
		return AuditTable(records), nil
	default:
		return Table{}, apperrors.Newf(apperrors.ValidationFailed, "unknown export entity %q", entity)
	}
}

// WriteCSV encodes the table as CSV.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVGzip encodes the table as gzip-compressed CSV.
func WriteCSVGzip(w io.Writer, t Table) error {
	gz := gzip.NewWriter(w)
	if err := WriteCSV(gz, t); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

// Write materializes one entity and streams it as CSV, gzipped on request.
func (e *Exporter) Write(w io.Writer, entity string, gzipped bool) error {
	t, err := e.Table(entity)
	if err != nil {
		return err
	}
	if gzipped {
		return WriteCSVGzip(w, t)
	}
	return WriteCSV(w, t)
}
