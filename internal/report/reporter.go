package report

import (
	"strings"

	"portfolio/internal/storage"
)

// Reporter answers dashboard and consolidation queries over the store.
type Reporter struct {
	store *storage.Store
}

// NewReporter creates a reporter over the store.
func NewReporter(store *storage.Store) *Reporter {
	return &Reporter{store: store}
}

// Dashboard holds the portfolio-wide headline numbers.
type Dashboard struct {
	Units          int     `json:"units"`
	Applications   int     `json:"applications"`
	Infrastructure int     `json:"infrastructure"`
	Services       int     `json:"services"`

	AnnualApplicationCost float64 `json:"annualApplicationCost"`
	AnnualMaintenanceCost float64 `json:"annualMaintenanceCost"`
	ServiceBudget         float64 `json:"serviceBudget"`
	UnitBudget            float64 `json:"unitBudget"`
}

// Dashboard computes entity counts and summed cost totals.
func (r *Reporter) Dashboard() (*Dashboard, error) {
	d := &Dashboard{}

	units, err := r.store.Units.List()
	if err != nil {
		return nil, err
	}
	d.Units = len(units)
	for _, u := range units {
		d.UnitBudget += u.BudgetAmount
	}

	apps, err := r.store.Applications.List()
	if err != nil {
		return nil, err
	}
	d.Applications = len(apps)
	for _, a := range apps {
		d.AnnualApplicationCost += a.AnnualCost
	}

	assets, err := r.store.Infrastructure.List()
	if err != nil {
		return nil, err
	}
	d.Infrastructure = len(assets)
	for _, i := range assets {
		d.AnnualMaintenanceCost += i.AnnualMaintenanceCost
	}

	services, err := r.store.Services.List()
	if err != nil {
		return nil, err
	}
	d.Services = len(services)
	for _, s := range services {
		d.ServiceBudget += s.BudgetAllocation
	}

	return d, nil
}

// appNameKey folds case so "Payroll" and "payroll" consolidate together.
func appNameKey(a storage.ApplicationRow) string { return strings.ToLower(a.Name) }

func serviceNameKey(s storage.ITServiceRow) string { return strings.ToLower(s.Name) }

// DuplicateApplications returns applications whose name appears more than
// once across the portfolio, in key order.
func (r *Reporter) DuplicateApplications() ([]storage.ApplicationRow, error) {
	apps, err := r.store.Applications.List()
	if err != nil {
		return nil, err
	}
	return Duplicates(apps, appNameKey), nil
}

// DuplicateServices returns services whose name is run by more than one
// provider, in key order.
func (r *Reporter) DuplicateServices() ([]storage.ITServiceRow, error) {
	services, err := r.store.Services.List()
	if err != nil {
		return nil, err
	}
	return Duplicates(services, serviceNameKey), nil
}

// CategoryOverlaps groups applications sharing one category, flagging areas
// where the portfolio carries several tools for the same job. Applications
// without a category (or whose category was deleted) are skipped.
func (r *Reporter) CategoryOverlaps() ([]Group[storage.ApplicationRow], error) {
	apps, err := r.store.Applications.List()
	if err != nil {
		return nil, err
	}

	withCategory := apps[:0:0]
	for _, a := range apps {
		if a.CategoryName != "" {
			withCategory = append(withCategory, a)
		}
	}
	return GroupDuplicates(withCategory, func(a storage.ApplicationRow) string {
		return a.CategoryName
	}), nil
}
