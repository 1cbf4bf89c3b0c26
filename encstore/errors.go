package encstore

import (
	"fmt"

	"github.com/gholt/theo2012/storeerr"
)

func errNotFoundf(format string, args ...interface{}) error {
	return storeerr.Wrap(storeerr.NotFound, "encstore", "", fmt.Errorf(format, args...))
}

func errCollisionOverflow(partKey string) error {
	return storeerr.Wrap(storeerr.Invariant, "encstore.add", partKey,
		fmt.Errorf("hash-collision partition exceeded %d entries", collisionCharsetLen))
}

func errUsage(op, loc string, format string, args ...interface{}) error {
	return storeerr.Wrap(storeerr.Usage, op, loc, fmt.Errorf(format, args...))
}

func errReadOnly(op, loc string) error {
	return storeerr.New(storeerr.ReadOnly, op, loc)
}
