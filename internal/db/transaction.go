package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// WithTransaction runs fn in one transaction. Any error from fn, or from the
// commit, rolls back and is returned mapped and prefixed with op.
func (db *DB) WithTransaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	if err := db.DB.WithContext(ctx).Transaction(fn); err != nil {
		return fmt.Errorf("%s: %w", op, MapGormError(err))
	}
	return nil
}
