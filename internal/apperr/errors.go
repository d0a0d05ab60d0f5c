package apperr

import "errors"

var (
	ErrInvalidArgs     = errors.New("invalid arguments")
	ErrSourceMissing   = errors.New("source directory missing")
	ErrToolNotFound    = errors.New("tool not found")
	ErrMalformedRecord = errors.New("malformed record")
	ErrPathEscapes     = errors.New("path escapes root")
)
