package extract

import (
	"errors"
	"fmt"

	"github.com/poiesic/lectern/core"
)

var (
	// ErrUnsupported indicates no extractor is registered for an extension.
	ErrUnsupported = fmt.Errorf("%w: unsupported file type", core.ErrExtraction)

	// ErrNoText indicates the document decoded but contained no text.
	ErrNoText = fmt.Errorf("%w: no text found", core.ErrExtraction)

	// ErrMalformed indicates the document bytes could not be decoded.
	ErrMalformed = errors.New("malformed document")
)
