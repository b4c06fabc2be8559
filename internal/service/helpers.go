package service

import (
	"errors"
	"fmt"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/repository"

	"github.com/shopspring/decimal"
)

// moneyScale matches the decimal(19,2) balance columns.
const moneyScale = 2

// subCent reports whether d carries digits the balance columns would drop.
func subCent(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(moneyScale))
}

// notFoundOr maps repository.ErrNotFound onto a typed NotFound and wraps anything else.
func notFoundOr(err error, resource, field string, value any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(resource, field, value)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("load %s: %w", resource, err)
}

// conflictOr maps repository.ErrDuplicate onto a typed Conflict.
func conflictOr(err error, resource, field string, value any) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Conflict(resource, field, value)
	}
	return fmt.Errorf("save %s: %w", resource, err)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func uintPtr(v uint) *uint { return &v }

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}
