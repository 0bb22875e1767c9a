package catalog

import "errors"

var (
	ErrNotFound      = errors.New("catalog: not found")
	ErrUnauthorized  = errors.New("catalog: unauthorized")
	ErrTemporary     = errors.New("catalog: temporary failure")
	ErrInvalidConfig = errors.New("catalog: invalid config")
)

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsTemporary(err error) bool    { return errors.Is(err, ErrTemporary) }
