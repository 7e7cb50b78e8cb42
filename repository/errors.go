package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when a unique value is already taken
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when a row cannot be deleted because other rows reference it
	ErrInUse = errors.New("record is referenced by other records")
	// ErrStatusConflict is returned when a conditional status update matched no row
	ErrStatusConflict = errors.New("record was modified concurrently")
)

// Postgres SQLSTATE codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps driver constraint failures onto the repository sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return ErrInUse
		}
	}
	return err
}

// ConstraintError names the entity and field behind ErrDuplicate or ErrInUse
type ConstraintError struct {
	Err    error
	Entity string
	Field  string
}

func (e *ConstraintError) Error() string {
	switch e.Err {
	case ErrDuplicate:
		return fmt.Sprintf("%s with this %s already exists", e.Entity, e.Field)
	case ErrInUse:
		return fmt.Sprintf("Cannot delete %s: it is referenced by existing records", strings.ToLower(e.Entity))
	}
	return e.Entity + ": " + e.Err.Error()
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

func duplicateErr(entity, field string) error {
	return &ConstraintError{Err: ErrDuplicate, Entity: entity, Field: field}
}

func inUseErr(entity string) error {
	return &ConstraintError{Err: ErrInUse, Entity: entity}
}
