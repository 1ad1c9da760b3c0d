package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Identity is the owner of a request: an authenticated user id or an
// anonymous session token, never both.
type Identity struct {
	UserID    *uint
	SessionID string
	IsAdmin   bool
}

// Anonymous reports whether the identity has no authenticated user.
func (i Identity) Anonymous() bool {
	return i.UserID == nil
}

// scopeOwner applies the mutually exclusive ownership filter to a query.
func scopeOwner(q *gorm.DB, ident Identity) *gorm.DB {
	if ident.UserID != nil {
		return q.Where("user_id = ?", *ident.UserID)
	}
	return q.Where("user_id IS NULL AND session_id = ?", ident.SessionID)
}

// ErrQuotaExceeded marks the per-identity daily analysis ceiling. Match with
// errors.Is; the concrete error carries the user-facing message.
var ErrQuotaExceeded = errors.New("daily analysis quota exceeded")

// ErrScanNotFound is returned when a history row does not exist or is not
// owned by the caller.
var ErrScanNotFound = errors.New("scan not found")

// QuotaExceededError tells the caller the ceiling was hit. Anonymous users
// are pointed at account creation, which raises their limit.
type QuotaExceededError struct {
	Anonymous bool
	Limit     int
}

func (e *QuotaExceededError) Error() string {
	if e.Anonymous {
		return fmt.Sprintf("Batas analisis harian (%d) tercapai. Buat akun untuk menambah batas harianmu.", e.Limit)
	}
	return fmt.Sprintf("Batas analisis harian (%d) tercapai. Silakan coba lagi besok.", e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
