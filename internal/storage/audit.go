package storage

import (
	"fmt"
	"time"

	apperrors "portfolio/internal/errors"
)

// Audit actions. Every mutating repository call records exactly one of these.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// BulkImportDetail tags audit records written by batch ingestion rather
// than interactive entry.
const BulkImportDetail = "Bulk Import"

// auditTimeLayout is wall-clock time at second resolution.
const auditTimeLayout = "2006-01-02 15:04:05"

// AuditRecord is one immutable row of the change log.
type AuditRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserEmail string    `json:"userEmail"`
	Action    string    `json:"action"`
	ItemType  string    `json:"itemType"`
	ItemName  string    `json:"itemName"`
	Details   string    `json:"details"`
}

// AuditLog appends and queries the append-only change log. Rows are never
// updated or deleted.
type AuditLog struct {
	db *DB
}

// NewAuditLog creates a new audit log over the database.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record appends one row with a generated timestamp.
func (l *AuditLog) Record(user, action, itemType, itemName, details string) error {
	timestamp := time.Now().Format(auditTimeLayout)
	_, err := l.db.Exec(`
		INSERT INTO audit_log (timestamp, user_email, action, item_type, item_name, details)
		VALUES (?, ?, ?, ?, ?, ?)
	`, timestamp, user, action, itemType, itemName, details)
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailure, "record audit entry", err)
	}

	l.db.logger.Debug("audit entry recorded",
		"user", user,
		"action", action,
		"item_type", itemType,
		"item_name", itemName,
	)
	return nil
}

// AuditFilter narrows a Query. Zero-valued fields match everything; the
// supplied fields intersect.
type AuditFilter struct {
	User     string
	ItemType string
	From     time.Time
	To       time.Time
}

// Query returns matching records newest-first.
func (l *AuditLog) Query(f AuditFilter) ([]AuditRecord, error) {
	query := "SELECT id, timestamp, user_email, action, item_type, item_name, COALESCE(details, '') FROM audit_log WHERE 1=1"
	var args []interface{}

	if f.User != "" {
		query += " AND user_email = ?"
		args = append(args, f.User)
	}
	if f.ItemType != "" {
		query += " AND item_type = ?"
		args = append(args, f.ItemType)
	}
	if !f.From.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.From.Format(auditTimeLayout))
	}
	if !f.To.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, f.To.Format(auditTimeLayout))
	}
	query += " ORDER BY timestamp DESC, id DESC"

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "query audit log", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var ts string
		if err := rows.Scan(&rec.ID, &ts, &rec.UserEmail, &rec.Action, &rec.ItemType, &rec.ItemName, &rec.Details); err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailure, "scan audit record", err)
		}
		rec.Timestamp, err = time.Parse(auditTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid audit timestamp %q: %w", ts, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailure, "iterate audit records", err)
	}

	return records, nil
}
