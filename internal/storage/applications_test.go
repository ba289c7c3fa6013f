package storage

import (
	"testing"

	apperrors "portfolio/internal/errors"
)

type appFixture struct {
	store      *Store
	unitID     int64
	vendorID   int64
	categoryID int64
	typeID     int64
}

func newAppFixture(t *testing.T) *appFixture {
	t.Helper()

	store := newTestStore(t)
	f := &appFixture{store: store}
	f.unitID = mustCreateUnit(t, store, "Networks")

	var err error
	if f.vendorID, err = store.Lookups.Add(testUser, TableVendors, "Initech"); err != nil {
		t.Fatalf("Failed to add vendor: %v", err)
	}
	if f.categoryID, err = store.Lookups.Add(testUser, TableCategories, "Finance"); err != nil {
		t.Fatalf("Failed to add category: %v", err)
	}
	if f.typeID, err = store.Lookups.Add(testUser, TableServiceTypes, "SaaS"); err != nil {
		t.Fatalf("Failed to add service type: %v", err)
	}
	return f
}

func (f *appFixture) valid() Application {
	return Application{
		Name:          "Payroll",
		ITUnitID:      ref(f.unitID),
		VendorID:      ref(f.vendorID),
		CategoryID:    ref(f.categoryID),
		ServiceTypeID: ref(f.typeID),
		AnnualCost:    12000,
		RenewalDate:   "2027-01-31",
		ServiceOwner:  "Lee",
		Status:        "Active",
	}
}

func TestApplicationCreateAndGet(t *testing.T) {
	f := newAppFixture(t)

	id, err := f.store.Applications.Create(testUser, f.valid(), false)
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	app, err := f.store.Applications.Get(id)
	if err != nil {
		t.Fatalf("Failed to get application: %v", err)
	}
	if app.Name != "Payroll" || app.AnnualCost != 12000 || app.RenewalDate != "2027-01-31" {
		t.Errorf("Unexpected application fields: %+v", app)
	}
	if app.ITUnitName != "Networks" || app.VendorName != "Initech" ||
		app.CategoryName != "Finance" || app.ServiceTypeName != "SaaS" {
		t.Errorf("Expected joined names resolved, got %+v", app)
	}
}

func TestApplicationValidation(t *testing.T) {
	f := newAppFixture(t)

	cases := []struct {
		name   string
		mutate func(*Application)
	}{
		{"missing name", func(a *Application) { a.Name = "" }},
		{"missing unit", func(a *Application) { a.ITUnitID = nil }},
		{"missing vendor", func(a *Application) { a.VendorID = nil }},
		{"missing category", func(a *Application) { a.CategoryID = nil }},
		{"negative cost", func(a *Application) { a.AnnualCost = -1 }},
		{"bad date", func(a *Application) { a.RenewalDate = "31/01/2027" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := f.valid()
			tc.mutate(&app)
			if _, err := f.store.Applications.Create(testUser, app, false); !apperrors.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	apps, err := f.store.Applications.List()
	if err != nil {
		t.Fatalf("Failed to list applications: %v", err)
	}
	if len(apps) != 0 {
		t.Errorf("Expected rejected creates to write nothing, got %d rows", len(apps))
	}
}

func TestApplicationOptionalTypeOmitted(t *testing.T) {
	f := newAppFixture(t)

	app := f.valid()
	app.ServiceTypeID = nil
	id, err := f.store.Applications.Create(testUser, app, false)
	if err != nil {
		t.Fatalf("Application type is optional, create failed: %v", err)
	}

	got, err := f.store.Applications.Get(id)
	if err != nil {
		t.Fatalf("Failed to get application: %v", err)
	}
	if got.ServiceTypeID != nil || got.ServiceTypeName != "" {
		t.Errorf("Expected blank service type, got %+v", got)
	}
}

func TestApplicationUpdateAndDelete(t *testing.T) {
	f := newAppFixture(t)

	id, err := f.store.Applications.Create(testUser, f.valid(), false)
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	updated := f.valid()
	updated.ID = id
	updated.Name = "Payroll v2"
	updated.AnnualCost = 15000
	if err := f.store.Applications.Update(testUser, updated); err != nil {
		t.Fatalf("Failed to update application: %v", err)
	}

	app, err := f.store.Applications.Get(id)
	if err != nil {
		t.Fatalf("Failed to get application: %v", err)
	}
	if app.Name != "Payroll v2" || app.AnnualCost != 15000 {
		t.Errorf("Update not applied: %+v", app)
	}

	if err := f.store.Applications.Delete(testUser, id); err != nil {
		t.Fatalf("Failed to delete application: %v", err)
	}
	if _, err := f.store.Applications.Get(id); !apperrors.IsNotFound(err) {
		t.Errorf("Expected deleted application to be gone, got %v", err)
	}
	if err := f.store.Applications.Delete(testUser, id); !apperrors.IsNotFound(err) {
		t.Errorf("Expected second delete to report not found, got %v", err)
	}
}

func TestApplicationListSurvivesDeletedLookup(t *testing.T) {
	f := newAppFixture(t)

	id, err := f.store.Applications.Create(testUser, f.valid(), false)
	if err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}

	// Deleting the vendor leaves a dangling mandatory reference; the listing
	// must keep the row and render the vendor blank.
	if err := f.store.Lookups.Delete(testUser, TableVendors, f.vendorID); err != nil {
		t.Fatalf("Failed to delete vendor: %v", err)
	}

	apps, err := f.store.Applications.List()
	if err != nil {
		t.Fatalf("Failed to list applications: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("Expected application to survive vendor delete, got %d rows", len(apps))
	}
	if apps[0].ID != id || apps[0].VendorName != "" {
		t.Errorf("Expected blank vendor name on surviving row, got %+v", apps[0])
	}
}
