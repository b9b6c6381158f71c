package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	domerr "github.com/granary-project/granary/pkg/domain/errors"
)

// reasons for the constraints enforcing archive-wide uniqueness. Violations
// of constraints not named here surface as generic conflicts.
var constraintReasons = map[string]string{
	"source_release_name_version":  "duplicate source version in the archive",
	"binary_release_file_filename": "duplicate binary filename in the archive",
}

// Translate maps a postgres error onto the domain taxonomy. Unique
// violations become conflicts, foreign key violations become missing rows.
// Anything else passes through unchanged, nil included.
func Translate(err error) error {
	pgerr := new(pgconn.PgError)
	if !errors.As(err, &pgerr) {
		return err
	}

	switch pgerr.Code {
	case pgerrcode.UniqueViolation:
		if reason, ok := constraintReasons[pgerr.ConstraintName]; ok {
			return &domerr.Conflict{Reason: reason}
		}
		return &domerr.Conflict{
			Reason: fmt.Sprintf("unique constraint %s violated", pgerr.ConstraintName),
		}
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf(
			"%w: row referenced by %s", domerr.ErrMissing, pgerr.ConstraintName,
		)
	}
	return err
}
