package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnsupportedBackend = errors.New("unsupported database backend")
	ErrOpen               = errors.New("open database")
	ErrMigrate            = errors.New("migrate database")
	ErrClosed             = errors.New("store closed")
)
