package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no record matches, including records
	// that exist but fall outside the requested scope.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when the store rejects a write on a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Scope restricts a query to the records one principal may see.
type Scope struct {
	Unrestricted bool
	OwnerID      uint
}

// All is the scope that sees every record.
func All() Scope {
	return Scope{Unrestricted: true}
}

// OwnedBy is the scope that sees only records owned by ownerID.
func OwnedBy(ownerID uint) Scope {
	return Scope{OwnerID: ownerID}
}

func (s Scope) apply(db *gorm.DB, column string) *gorm.DB {
	if s.Unrestricted {
		return db
	}
	return db.Where(column+" = ?", s.OwnerID)
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %v", msg, ErrDuplicate, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
