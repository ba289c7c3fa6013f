// Package importer ingests CSV files of entities in bulk. Each file uses a
// fixed header contract; references are given by display name and resolved
// against the store. A bad row is reported and skipped, never aborting the
// rest of the batch.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/storage"
)

// Template headers per entity. Files must carry at least these columns;
// extra columns are ignored.
var (
	UnitHeaders = []string{
		"name", "contact_person", "contact_email", "total_fte", "budget_amount", "notes",
	}
	ApplicationHeaders = []string{
		"name", "service_owner", "managing_it_unit_name", "vendor_name", "type_name",
		"category_name", "annual_cost", "renewal_date", "integrations", "description",
		"similar_applications",
	}
	InfrastructureHeaders = []string{
		"name", "managing_it_unit_name", "vendor_name", "location", "status",
		"purchase_date", "warranty_expiry", "annual_maintenance_cost", "description",
	}
	ServiceHeaders = []string{
		"name", "providing_it_unit_name", "status", "service_owner", "fte_count",
		"budget_allocation", "sla_level_name", "service_method_name", "description",
		"dependencies",
	}
)

// Entity names accepted by Import.
const (
	EntityUnits          = "units"
	EntityApplications   = "applications"
	EntityInfrastructure = "infrastructure"
	EntityServices       = "services"
)

// TemplateHeaders returns the header contract for an entity.
func TemplateHeaders(entity string) ([]string, error) {
	switch entity {
	case EntityUnits:
		return UnitHeaders, nil
	case EntityApplications:
		return ApplicationHeaders, nil
	case EntityInfrastructure:
		return InfrastructureHeaders, nil
	case EntityServices:
		return ServiceHeaders, nil
	default:
		return nil, apperrors.Newf(apperrors.ValidationFailed, "unknown import entity %q", entity)
	}
}

// RowError reports one rejected row. Line is 1-based and counts the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Result summarizes one import run.
type Result struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors,omitempty"`
}

// Importer runs bulk ingestion over the store's repositories.
type Importer struct {
	store  *storage.Store
	logger *slog.Logger
}

// NewImporter creates an importer over the store.
func NewImporter(store *storage.Store, logger *slog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// record gives name-based access to one CSV row.
type record struct {
	fields map[string]int
	cells  []string
}

func (r record) get(name string) string {
	idx, ok := r.fields[name]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func parseFloatField(r record, name string) (float64, error) {
	raw := r.get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ValidationFailed, "%s must be a number, got %q", name, raw)
	}
	return v, nil
}

func parseIntField(r record, name string) (int, error) {
	raw := r.get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ValidationFailed, "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// optionalLookup resolves a lookup name when present, nil when blank.
func (im *Importer) optionalLookup(table, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	id, err := im.store.Lookups.IDByName(table, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Import reads CSV from r and creates one entity per data row on behalf of
// user. The returned Result carries the per-row errors; the error return is
// reserved for unreadable input or an unknown entity.
func (im *Importer) Import(user, entity string, r io.Reader) (*Result, error) {
	required, err := TemplateHeaders(entity)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.New(apperrors.ValidationFailed, "import file is empty")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ValidationFailed, "read import header", err)
	}

	fields := make(map[string]int, len(header))
	for i, name := range header {
		fields[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := fields[name]; !ok {
			return nil, apperrors.Newf(apperrors.ValidationFailed,
				"import file is missing required column %q", name)
		}
	}

	result := &Result{}
	line := 1
	for {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}

		row := record{fields: fields, cells: cells}
		if err := im.importRow(user, entity, row); err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		result.Imported++
	}

	im.logger.Info("bulk import finished",
		"entity", entity,
		"imported", result.Imported,
		"rejected", len(result.Errors),
	)
	return result, nil
}

func (im *Importer) importRow(user, entity string, row record) error {
	switch entity {
	case EntityUnits:
		return im.importUnit(user, row)
	case EntityApplications:
		return im.importApplication(user, row)
	case EntityInfrastructure:
		return im.importInfrastructure(user, row)
	case EntityServices:
		return im.importService(user, row)
	}
	return apperrors.Newf(apperrors.ValidationFailed, "unknown import entity %q", entity)
}

func (im *Importer) importUnit(user string, row record) error {
	fte, err := parseIntField(row, "total_fte")
	if err != nil {
		return err
	}
	budget, err := parseFloatField(row, "budget_amount")
	if err != nil {
		return err
	}

	_, _, err = im.store.Units.Create(user, storage.ITUnit{
		Name:          row.get("name"),
		ContactPerson: row.get("contact_person"),
		ContactEmail:  row.get("contact_email"),
		Notes:         row.get("notes"),
		TotalFTE:      fte,
		BudgetAmount:  budget,
	}, true)
	return err
}

func (im *Importer) importApplication(user string, row record) error {
	unitID, err := im.store.Units.IDByName(row.get("managing_it_unit_name"))
	if err != nil {
		return err
	}
	vendorID, err := im.store.Lookups.IDByName(storage.TableVendors, row.get("vendor_name"))
	if err != nil {
		return err
	}
	categoryID, err := im.store.Lookups.IDByName(storage.TableCategories, row.get("category_name"))
	if err != nil {
		return err
	}
	typeID, err := im.optionalLookup(storage.TableServiceTypes, row.get("type_name"))
	if err != nil {
		return err
	}
	cost, err := parseFloatField(row, "annual_cost")
	if err != nil {
		return err
	}

	_, err = im.store.Applications.Create(user, storage.Application{
		Name:                row.get("name"),
		ITUnitID:            &unitID,
		VendorID:            &vendorID,
		CategoryID:          &categoryID,
		ServiceTypeID:       typeID,
		AnnualCost:          cost,
		RenewalDate:         row.get("renewal_date"),
		Integrations:        row.get("integrations"),
		Description:         row.get("description"),
		SimilarApplications: row.get("similar_applications"),
		ServiceOwner:        row.get("service_owner"),
	}, true)
	return err
}

func (im *Importer) importInfrastructure(user string, row record) error {
	unitID, err := im.store.Units.IDByName(row.get("managing_it_unit_name"))
	if err != nil {
		return err
	}
	vendorID, err := im.optionalLookup(storage.TableVendors, row.get("vendor_name"))
	if err != nil {
		return err
	}
	cost, err := parseFloatField(row, "annual_maintenance_cost")
	if err != nil {
		return err
	}

	_, err = im.store.Infrastructure.Create(user, storage.Infrastructure{
		Name:                  row.get("name"),
		ITUnitID:              &unitID,
		VendorID:              vendorID,
		Location:              row.get("location"),
		Status:                row.get("status"),
		PurchaseDate:          row.get("purchase_date"),
		WarrantyExpiry:        row.get("warranty_expiry"),
		AnnualMaintenanceCost: cost,
		Description:           row.get("description"),
	}, true)
	return err
}

func (im *Importer) importService(user string, row record) error {
	unitID, err := im.store.Units.IDByName(row.get("providing_it_unit_name"))
	if err != nil {
		return err
	}
	slaID, err := im.optionalLookup(storage.TableSLALevels, row.get("sla_level_name"))
	if err != nil {
		return err
	}
	methodID, err := im.optionalLookup(storage.TableServiceMethods, row.get("service_method_name"))
	if err != nil {
		return err
	}
	fte, err := parseIntField(row, "fte_count")
	if err != nil {
		return err
	}
	budget, err := parseFloatField(row, "budget_allocation")
	if err != nil {
		return err
	}

	_, err = im.store.Services.Create(user, storage.ITService{
		Name:             row.get("name"),
		ITUnitID:         &unitID,
		Status:           row.get("status"),
		ServiceOwner:     row.get("service_owner"),
		FTECount:         fte,
		BudgetAllocation: budget,
		SLALevelID:       slaID,
		ServiceMethodID:  methodID,
		Description:      row.get("description"),
		Dependencies:     row.get("dependencies"),
	}, true)
	return err
}
