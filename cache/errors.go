package cache

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidConfiguration is returned by New and Config.Validate when the
	// options describe a cache whose entries would never expire and never be swept.
	ErrInvalidConfiguration = errors.New("cache: invalid configuration")

	// ErrInvalidState is returned by every operation on a cache that has been shut down.
	ErrInvalidState = errors.New("cache: invalid state")
)

func deadError(op string) error {
	return errors.Wrapf(ErrInvalidState, "%s called after shutdown", op)
}
