package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrModelNotLoaded is returned when clusters are requested before a
// segmentation model was trained or loaded.
var ErrModelNotLoaded = errors.New("segmentation model not loaded")

// SchemaError is returned when required raw columns are absent from the input.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// PersistenceError is returned when stored model state is missing or malformed.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: invalid model state", e.Op, e.Path)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsSchemaError returns true if err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// IsPersistenceError returns true if err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var persistenceErr *PersistenceError
	return errors.As(err, &persistenceErr)
}

// IsModelNotLoaded returns true if err is or wraps ErrModelNotLoaded.
func IsModelNotLoaded(err error) bool {
	return errors.Is(err, ErrModelNotLoaded)
}
