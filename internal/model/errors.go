package model

import "errors"

// ErrNotFound is returned by lookups that have no matching record.
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned by a storage backend for operations it cannot serve.
var ErrUnsupported = errors.New("operation not supported by backend")
