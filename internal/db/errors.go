package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a primary key or unique index clash
	ErrDuplicate = errors.New("duplicate record")
	// ErrBusy is returned when sqlite could not take its write lock in time
	ErrBusy = errors.New("database is busy")
)

// IsNotFound reports whether err is a missing row
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsBusy reports whether err is a lock timeout worth retrying
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// MapGormError folds gorm and sqlite driver errors into the sentinels
// above. sqlite only reports these as text, so matching is on the message.
func MapGormError(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrBusy) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return ErrDuplicate
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "sqlite_busy"):
		return ErrBusy
	}
	return err
}
