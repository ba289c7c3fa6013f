package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/report"
	"portfolio/internal/storage"
)

// pathID parses the trailing numeric id of a route like /api/v1/units/7.
func pathID(path, prefix string) (int64, error) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.TrimSuffix(raw, "/")
	if raw == "" || strings.Contains(raw, "/") {
		return 0, apperrors.New(apperrors.NotFound, "no such resource")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.NotFound, "invalid id %q", raw)
	}
	return id, nil
}

func (s *Server) decode(r *http.Request, into interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return apperrors.Wrap(apperrors.ValidationFailed, "invalid request body", err)
	}
	return nil
}

// writeCSV streams one entity listing as a CSV attachment, gzipped when
// requested with ?gzip=1.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, entity string) {
	gzipped := r.URL.Query().Get("gzip") == "1"

	filename := entity + "_export.csv"
	w.Header().Set("Content-Type", "text/csv")
	if gzipped {
		filename += ".gz"
		w.Header().Set("Content-Type", "application/gzip")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.exporter.Write(w, entity, gzipped); err != nil {
		s.logger.Error("csv export failed", "entity", entity, "error", err)
	}
}

// wantsCSV reports whether the listing should be served as CSV.
func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

// --- IT Units ---

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if wantsCSV(r) {
			s.writeCSV(w, r, "units")
			return
		}
		units, err := s.store.Units.List()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, units)

	case http.MethodPost:
		var unit storage.ITUnit
		if err := s.decode(r, &unit); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, created, err := s.store.Units.Create(userEmail(r.Context()), unit, false)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		s.writeData(w, r, status, map[string]interface{}{"id": id, "created": created})

	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleUnitByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/units/")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		unit, err := s.store.Units.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, unit)

	case http.MethodPut:
		var unit storage.ITUnit
		if err := s.decode(r, &unit); err != nil {
			s.writeError(w, r, err)
			return
		}
		unit.ID = id
		if err := s.store.Units.Update(userEmail(r.Context()), unit); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, unit)

	case http.MethodDelete:
		if err := s.store.Units.Delete(userEmail(r.Context()), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, map[string]int64{"deleted": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

// --- Applications ---

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if wantsCSV(r) {
			s.writeCSV(w, r, "applications")
			return
		}
		apps, err := s.store.Applications.List()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, apps)

	case http.MethodPost:
		var app storage.Application
		if err := s.decode(r, &app); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := s.store.Applications.Create(userEmail(r.Context()), app, false)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusCreated, map[string]int64{"id": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleApplicationByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/applications/")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		app, err := s.store.Applications.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, app)

	case http.MethodPut:
		var app storage.Application
		if err := s.decode(r, &app); err != nil {
			s.writeError(w, r, err)
			return
		}
		app.ID = id
		if err := s.store.Applications.Update(userEmail(r.Context()), app); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, app)

	case http.MethodDelete:
		if err := s.store.Applications.Delete(userEmail(r.Context()), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, map[string]int64{"deleted": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

// --- Infrastructure ---

func (s *Server) handleInfrastructure(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if wantsCSV(r) {
			s.writeCSV(w, r, "infrastructure")
			return
		}
		assets, err := s.store.Infrastructure.List()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, assets)

	case http.MethodPost:
		var asset storage.Infrastructure
		if err := s.decode(r, &asset); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := s.store.Infrastructure.Create(userEmail(r.Context()), asset, false)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusCreated, map[string]int64{"id": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleInfrastructureByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/infrastructure/")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		asset, err := s.store.Infrastructure.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, asset)

	case http.MethodPut:
		var asset storage.Infrastructure
		if err := s.decode(r, &asset); err != nil {
			s.writeError(w, r, err)
			return
		}
		asset.ID = id
		if err := s.store.Infrastructure.Update(userEmail(r.Context()), asset); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, asset)

	case http.MethodDelete:
		if err := s.store.Infrastructure.Delete(userEmail(r.Context()), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, map[string]int64{"deleted": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

// --- IT Services ---

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if wantsCSV(r) {
			s.writeCSV(w, r, "services")
			return
		}
		services, err := s.store.Services.List()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, services)

	case http.MethodPost:
		var svc storage.ITService
		if err := s.decode(r, &svc); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := s.store.Services.Create(userEmail(r.Context()), svc, false)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusCreated, map[string]int64{"id": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/services/")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		svc, err := s.store.Services.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, svc)

	case http.MethodPut:
		var svc storage.ITService
		if err := s.decode(r, &svc); err != nil {
			s.writeError(w, r, err)
			return
		}
		svc.ID = id
		if err := s.store.Services.Update(userEmail(r.Context()), svc); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, svc)

	case http.MethodDelete:
		if err := s.store.Services.Delete(userEmail(r.Context()), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, map[string]int64{"deleted": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

// --- Lookups ---

// handleLookups routes /api/v1/lookups/{table} and
// /api/v1/lookups/{table}/{id}.
func (s *Server) handleLookups(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/lookups/")
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleLookupTable(w, r, parts[0])
	case len(parts) == 2:
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			s.notFound(w, r)
			return
		}
		s.handleLookupItem(w, r, parts[0], id)
	default:
		s.notFound(w, r)
	}
}

type lookupPayload struct {
	Name string `json:"name"`
}

func (s *Server) handleLookupTable(w http.ResponseWriter, r *http.Request, table string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.store.Lookups.List(table)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, items)

	case http.MethodPost:
		var payload lookupPayload
		if err := s.decode(r, &payload); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := s.store.Lookups.Add(userEmail(r.Context()), table, payload.Name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusCreated, storage.LookupItem{ID: id, Name: payload.Name})

	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleLookupItem(w http.ResponseWriter, r *http.Request, table string, id int64) {
	switch r.Method {
	case http.MethodPut:
		var payload lookupPayload
		if err := s.decode(r, &payload); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.store.Lookups.Rename(userEmail(r.Context()), table, id, payload.Name); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, storage.LookupItem{ID: id, Name: payload.Name})

	case http.MethodDelete:
		if err := s.store.Lookups.Delete(userEmail(r.Context()), table, id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeData(w, r, http.StatusOK, map[string]int64{"deleted": id})

	default:
		s.methodNotAllowed(w, r)
	}
}

// --- Audit ---

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if wantsCSV(r) {
		s.writeCSV(w, r, "audit")
		return
	}

	filter := storage.AuditFilter{
		User:     r.URL.Query().Get("user"),
		ItemType: r.URL.Query().Get("itemType"),
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, r, apperrors.Newf(apperrors.ValidationFailed, "from must be a date in YYYY-MM-DD form"))
			return
		}
		filter.From = t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, r, apperrors.Newf(apperrors.ValidationFailed, "to must be a date in YYYY-MM-DD form"))
			return
		}
		// Inclusive upper bound: take the whole day.
		filter.To = t.Add(24*time.Hour - time.Second)
	}

	records, err := s.store.Audit.Query(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, records)
}

// --- Reports ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}

	dashboard, err := s.reporter.Dashboard()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, dashboard)
}

// OverlapReport bundles the three consolidation views.
type OverlapReport struct {
	DuplicateApplications []storage.ApplicationRow               `json:"duplicateApplications"`
	DuplicateServices     []storage.ITServiceRow                 `json:"duplicateServices"`
	CategoryOverlaps      []report.Group[storage.ApplicationRow] `json:"categoryOverlaps"`
}

func (s *Server) handleOverlaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}

	var (
		out OverlapReport
		err error
	)
	if out.DuplicateApplications, err = s.reporter.DuplicateApplications(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if out.DuplicateServices, err = s.reporter.DuplicateServices(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if out.CategoryOverlaps, err = s.reporter.CategoryOverlaps(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, out)
}

// --- Bulk import ---

// handleImport handles POST /api/v1/import/{entity} with a CSV body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}

	entity := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/import/"), "/")
	result, err := s.importer.Import(userEmail(r.Context()), entity, r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, r, http.StatusOK, result)
}
