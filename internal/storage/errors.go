package storage

import "errors"

var (
	// ErrNoDSN is returned when no connection string is configured
	ErrNoDSN = errors.New("database DSN is empty")

	// ErrOrphanModel is returned when a catalog model references an unknown provider
	ErrOrphanModel = errors.New("catalog model references unknown provider")
)
