package storage

import (
	"testing"

	apperrors "portfolio/internal/errors"
)

const testUser = "tester@example.com"

func mustCreateUnit(t *testing.T, store *Store, name string) int64 {
	t.Helper()
	id, _, err := store.Units.Create(testUser, ITUnit{Name: name, ContactPerson: "Kim"}, false)
	if err != nil {
		t.Fatalf("Failed to create unit %s: %v", name, err)
	}
	return id
}

func ref(id int64) *int64 { return &id }

func TestUnitCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	id, created, err := store.Units.Create(testUser, ITUnit{
		Name:          "Networks",
		ContactPerson: "Kim",
		ContactEmail:  "kim@example.com",
		TotalFTE:      12,
		BudgetAmount:  250000,
	}, false)
	if err != nil {
		t.Fatalf("Failed to create unit: %v", err)
	}
	if !created {
		t.Error("Expected created=true for a new unit")
	}

	unit, err := store.Units.Get(id)
	if err != nil {
		t.Fatalf("Failed to get unit: %v", err)
	}
	if unit.Name != "Networks" || unit.TotalFTE != 12 || unit.BudgetAmount != 250000 {
		t.Errorf("Unexpected unit fields: %+v", unit)
	}
}

func TestUnitCreateDuplicateNameReusesID(t *testing.T) {
	store := newTestStore(t)

	first := mustCreateUnit(t, store, "Networks")

	second, created, err := store.Units.Create(testUser, ITUnit{Name: "Networks", ContactPerson: "Lee"}, false)
	if err != nil {
		t.Fatalf("Duplicate create should not fail: %v", err)
	}
	if created {
		t.Error("Expected created=false when reusing an existing unit")
	}
	if second != first {
		t.Errorf("Expected existing id %d, got %d", first, second)
	}

	units, err := store.Units.List()
	if err != nil {
		t.Fatalf("Failed to list units: %v", err)
	}
	if len(units) != 1 {
		t.Errorf("Expected one unit after duplicate create, got %d", len(units))
	}
}

func TestUnitValidation(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name string
		unit ITUnit
	}{
		{"missing name", ITUnit{ContactPerson: "Kim"}},
		{"missing contact", ITUnit{Name: "Networks"}},
		{"negative fte", ITUnit{Name: "Networks", ContactPerson: "Kim", TotalFTE: -1}},
		{"negative budget", ITUnit{Name: "Networks", ContactPerson: "Kim", BudgetAmount: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := store.Units.Create(testUser, tc.unit, false)
			if !apperrors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	units, err := store.Units.List()
	if err != nil {
		t.Fatalf("Failed to list units: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("Expected rejected creates to write nothing, got %d units", len(units))
	}
}

func TestUnitUpdate(t *testing.T) {
	store := newTestStore(t)
	id := mustCreateUnit(t, store, "Networks")

	err := store.Units.Update(testUser, ITUnit{
		ID: id, Name: "Network Operations", ContactPerson: "Lee", TotalFTE: 8,
	})
	if err != nil {
		t.Fatalf("Failed to update unit: %v", err)
	}

	unit, err := store.Units.Get(id)
	if err != nil {
		t.Fatalf("Failed to get unit: %v", err)
	}
	if unit.Name != "Network Operations" || unit.ContactPerson != "Lee" {
		t.Errorf("Update not applied: %+v", unit)
	}

	err = store.Units.Update(testUser, ITUnit{ID: 9999, Name: "Ghost", ContactPerson: "Kim"})
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found error for missing unit, got %v", err)
	}
}

func TestUnitGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Units.Get(42)
	if !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestUnitDeleteClearsReferences(t *testing.T) {
	store := newTestStore(t)

	unitID := mustCreateUnit(t, store, "Networks")
	keeperID := mustCreateUnit(t, store, "Service Desk")

	vendorID, err := store.Lookups.Add(testUser, TableVendors, "Initech")
	if err != nil {
		t.Fatalf("Failed to add vendor: %v", err)
	}
	categoryID, err := store.Lookups.Add(testUser, TableCategories, "Finance")
	if err != nil {
		t.Fatalf("Failed to add category: %v", err)
	}

	appID, err := store.Applications.Create(testUser, Application{
		Name: "Payroll", ITUnitID: ref(unitID), VendorID: ref(vendorID), CategoryID: ref(categoryID),
	}, false)
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	svcID, err := store.Services.Create(testUser, ITService{Name: "Email", ITUnitID: ref(unitID)}, false)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	infraID, err := store.Infrastructure.Create(testUser, Infrastructure{Name: "Core switch", ITUnitID: ref(unitID)}, false)
	if err != nil {
		t.Fatalf("Failed to create infrastructure: %v", err)
	}
	keeperSvcID, err := store.Services.Create(testUser, ITService{Name: "Backups", ITUnitID: ref(keeperID)}, false)
	if err != nil {
		t.Fatalf("Failed to create keeper service: %v", err)
	}

	if err := store.Units.Delete(testUser, unitID); err != nil {
		t.Fatalf("Failed to delete unit: %v", err)
	}

	if _, err := store.Units.Get(unitID); !apperrors.IsNotFound(err) {
		t.Errorf("Expected deleted unit to be gone, got %v", err)
	}

	app, err := store.Applications.Get(appID)
	if err != nil {
		t.Fatalf("Application row must survive unit delete: %v", err)
	}
	if app.ITUnitID != nil || app.ITUnitName != "" {
		t.Errorf("Expected application unit reference cleared, got %+v", app)
	}

	svc, err := store.Services.Get(svcID)
	if err != nil {
		t.Fatalf("Service row must survive unit delete: %v", err)
	}
	if svc.ITUnitID != nil {
		t.Errorf("Expected service unit reference cleared, got %v", *svc.ITUnitID)
	}

	infra, err := store.Infrastructure.Get(infraID)
	if err != nil {
		t.Fatalf("Infrastructure row must survive unit delete: %v", err)
	}
	if infra.ITUnitID != nil {
		t.Errorf("Expected infrastructure unit reference cleared, got %v", *infra.ITUnitID)
	}

	// Rows referencing other units are untouched.
	keeperSvc, err := store.Services.Get(keeperSvcID)
	if err != nil {
		t.Fatalf("Failed to get keeper service: %v", err)
	}
	if keeperSvc.ITUnitID == nil || *keeperSvc.ITUnitID != keeperID {
		t.Errorf("Expected keeper service to keep its unit, got %+v", keeperSvc.ITUnitID)
	}

	if err := store.Units.Delete(testUser, unitID); !apperrors.IsNotFound(err) {
		t.Errorf("Expected second delete to report not found, got %v", err)
	}
}
