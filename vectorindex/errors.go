package vectorindex

import (
	"errors"
	"fmt"

	"github.com/poiesic/lectern/core"
)

var (
	// ErrInvalidDimension is returned when a collection is requested with a
	// non-positive vector size.
	ErrInvalidDimension = fmt.Errorf("%w: dimension must be positive", core.ErrIndex)

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the collection's configured size.
	ErrDimensionMismatch = fmt.Errorf("%w: vector dimension mismatch", core.ErrIndex)

	// ErrCollectionNotFound is returned by Upsert against a missing collection.
	ErrCollectionNotFound = fmt.Errorf("%w: collection not found", core.ErrIndex)

	// ErrEmptyCollectionName is returned when no collection name is given.
	ErrEmptyCollectionName = errors.New("collection name is required")
)
