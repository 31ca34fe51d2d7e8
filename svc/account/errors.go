package account

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("account: not found")
	ErrAlreadyExists   = errors.New("account: already exists")
	ErrInvalidIdentity = errors.New("account: invalid identity")
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidIdentity, reason)
}
