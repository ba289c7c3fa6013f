package storage

// Store bundles the audit log and every repository over one database.
type Store struct {
	DB             *DB
	Audit          *AuditLog
	Lookups        *LookupRepository
	Units          *UnitRepository
	Applications   *ApplicationRepository
	Infrastructure *InfrastructureRepository
	Services       *ServiceRepository
}

// NewStore wires the repositories over an open database.
func NewStore(db *DB) *Store {
	audit := NewAuditLog(db)
	return &Store{
		DB:             db,
		Audit:          audit,
		Lookups:        NewLookupRepository(db, audit),
		Units:          NewUnitRepository(db, audit),
		Applications:   NewApplicationRepository(db, audit),
		Infrastructure: NewInfrastructureRepository(db, audit),
		Services:       NewServiceRepository(db, audit),
	}
}
