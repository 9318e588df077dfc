package service

import (
	"strings"

	"github.com/noah-isme/lab-booking-api/internal/models"
)

// normalizeName lower-cases and trims names before they are stored.
func normalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func paginationFor(page, size, total int) *models.Pagination {
	p := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	p.Normalize()
	return p
}
