package sqlconfig

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("sqlconfig: not found")

	// ErrVersionConflict is returned by a conditional balance write whose expected version
	// no longer matches the stored row.
	ErrVersionConflict = errors.New("sqlconfig: version conflict")
)
