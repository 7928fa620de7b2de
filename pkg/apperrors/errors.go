package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrSyncInProgress     = errors.New("sync already in progress")
	ErrClientUnresolvable = errors.New("default client created but not retrievable")
	ErrUnsupportedEngine  = errors.New("unsupported database engine")
)
