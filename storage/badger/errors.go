package badger

import "errors"

// ErrStoreRequired is returned when a repository is constructed without a Store.
var ErrStoreRequired = errors.New("badger store required")
