package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/storage"
)

const testUser = "tester@example.com"

func newTestExporter(t *testing.T) (*Exporter, *storage.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := storage.Open(filepath.Join(t.TempDir(), "portfolio.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := storage.NewStore(db)
	return NewExporter(store), store
}

func seedOneOfEach(t *testing.T, store *storage.Store) {
	t.Helper()

	unitID, _, err := store.Units.Create(testUser, storage.ITUnit{
		Name: "Networks", ContactPerson: "Kim", TotalFTE: 12, BudgetAmount: 250000,
	}, false)
	if err != nil {
		t.Fatalf("Failed to create unit: %v", err)
	}
	vendorID, err := store.Lookups.Add(testUser, storage.TableVendors, "Initech")
	if err != nil {
		t.Fatalf("Failed to add vendor: %v", err)
	}
	categoryID, err := store.Lookups.Add(testUser, storage.TableCategories, "Finance")
	if err != nil {
		t.Fatalf("Failed to add category: %v", err)
	}
	if _, err := store.Applications.Create(testUser, storage.Application{
		Name: "Payroll", ITUnitID: &unitID, VendorID: &vendorID, CategoryID: &categoryID,
		AnnualCost: 12000.5,
	}, false); err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	if _, err := store.Infrastructure.Create(testUser, storage.Infrastructure{
		Name: "Core switch", ITUnitID: &unitID,
	}, false); err != nil {
		t.Fatalf("Failed to create infrastructure: %v", err)
	}
	if _, err := store.Services.Create(testUser, storage.ITService{
		Name: "Email", ITUnitID: &unitID,
	}, false); err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	return records
}

func TestExportApplicationsCSV(t *testing.T) {
	exporter, store := newTestExporter(t)
	seedOneOfEach(t, store)

	var buf bytes.Buffer
	if err := exporter.Write(&buf, EntityApplications, false); err != nil {
		t.Fatalf("Failed to export applications: %v", err)
	}

	records := parseCSV(t, buf.Bytes())
	if len(records) != 2 {
		t.Fatalf("Expected header plus one row, got %d records", len(records))
	}
	if records[0][0] != "name" || records[0][2] != "managing_it_unit_name" {
		t.Errorf("Unexpected header: %v", records[0])
	}

	row := records[1]
	if row[0] != "Payroll" || row[2] != "Networks" || row[3] != "Initech" {
		t.Errorf("Unexpected row: %v", row)
	}
	if row[6] != "12000.50" {
		t.Errorf("Expected annual cost 12000.50, got %s", row[6])
	}
}

func TestExportAllEntities(t *testing.T) {
	exporter, store := newTestExporter(t)
	seedOneOfEach(t, store)

	for _, entity := range Entities {
		table, err := exporter.Table(entity)
		if err != nil {
			t.Fatalf("Failed to materialize %s: %v", entity, err)
		}
		if len(table.Headers) == 0 {
			t.Errorf("%s: empty header row", entity)
		}
		if len(table.Rows) == 0 {
			t.Errorf("%s: expected at least one data row", entity)
		}
		for i, row := range table.Rows {
			if len(row) != len(table.Headers) {
				t.Errorf("%s row %d: %d cells for %d headers", entity, i, len(row), len(table.Headers))
			}
		}
	}
}

func TestExportUnknownEntity(t *testing.T) {
	exporter, _ := newTestExporter(t)

	if _, err := exporter.Table("widgets"); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error for unknown entity, got %v", err)
	}
}

func TestExportGzipRoundTrip(t *testing.T) {
	exporter, store := newTestExporter(t)
	seedOneOfEach(t, store)

	var buf bytes.Buffer
	if err := exporter.Write(&buf, EntityUnits, true); err != nil {
		t.Fatalf("Failed to export gzipped units: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("Export is not valid gzip: %v", err)
	}
	defer gz.Close()
	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("Failed to decompress export: %v", err)
	}

	if !strings.Contains(string(data), "Networks") {
		t.Errorf("Decompressed export missing data row: %q", data)
	}
	records := parseCSV(t, data)
	if len(records) != 2 {
		t.Errorf("Expected header plus one row, got %d records", len(records))
	}
}

func TestExportEmptyTableKeepsHeader(t *testing.T) {
	exporter, _ := newTestExporter(t)

	var buf bytes.Buffer
	if err := exporter.Write(&buf, EntityServices, false); err != nil {
		t.Fatalf("Failed to export empty services: %v", err)
	}
	records := parseCSV(t, buf.Bytes())
	if len(records) != 1 {
		t.Fatalf("Expected only the header row, got %d records", len(records))
	}
	if records[0][0] != "name" {
		t.Errorf("Unexpected header: %v", records[0])
	}
}
