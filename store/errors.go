package store

import "errors"

var (
	// ErrConflict indicates a compare-and-swap lost to a concurrent writer.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrReservationNotFound indicates a release for lots that were never reserved.
	ErrReservationNotFound = errors.New("reservation not found")
)
