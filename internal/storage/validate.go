package storage

import (
	"strings"
	"time"

	apperrors "portfolio/internal/errors"
)

// dateLayout is the calendar-date format accepted on date fields.
const dateLayout = "2006-01-02"

// requireText rejects a missing required text field.
func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.Newf(apperrors.ValidationFailed, "%s is required", field)
	}
	return nil
}

// requireRef rejects a missing required reference.
func requireRef(field string, id *int64) error {
	if id == nil || *id <= 0 {
		return apperrors.Newf(apperrors.ValidationFailed, "%s is required", field)
	}
	return nil
}

// nonNegativeInt rejects a negative count before it reaches storage.
func nonNegativeInt(field string, v int) error {
	if v < 0 {
		return apperrors.Newf(apperrors.ValidationFailed, "%s must not be negative", field)
	}
	return nil
}

// nonNegativeFloat rejects a negative amount before it reaches storage.
func nonNegativeFloat(field string, v float64) error {
	if v < 0 {
		return apperrors.Newf(apperrors.ValidationFailed, "%s must not be negative", field)
	}
	return nil
}

// validDate rejects a non-empty date that is not YYYY-MM-DD.
func validDate(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return apperrors.Newf(apperrors.ValidationFailed, "%s must be a date in YYYY-MM-DD form", field)
	}
	return nil
}

// nullIfEmpty stores empty optional text as NULL.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// refOrNull stores an unset optional reference as NULL.
func refOrNull(id *int64) interface{} {
	if id == nil || *id <= 0 {
		return nil
	}
	return *id
}

// isUniqueViolation detects a UNIQUE constraint failure from the driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
