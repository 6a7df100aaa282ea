// errors_helper.go provides error construction helpers for store operations.
package datastore

import (
	"fmt"

	"github.com/pcbaoi/aoi-go/internal/errors"
)

// storageError wraps a backend failure so that errors.Is(err,
// ErrStorageUnavailable) holds for the caller, with operation context for
// logging.
func storageError(err error, operation string, context ...any) error {
	builder := errors.New(fmt.Errorf("%w: %v", ErrStorageUnavailable, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError rejects malformed input before any query is issued.
// Matches ErrConstraintViolation.
func validationError(message, field string, value any) error {
	return errors.New(fmt.Errorf("%w: %s", ErrConstraintViolation, message)).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// notFoundError reports an empty lookup result. Matches the given sentinel
// (ErrInspectionNotFound, ErrBoxNotFound, ErrUserNotFound).
func notFoundError(sentinel error, resource, identifier string) error {
	return errors.New(sentinel).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

// capacityError reports a routing attempt against a full box.
func capacityError(boxID string, maxSlots int) error {
	return errors.New(fmt.Errorf("%w: box %s holds %d boards", ErrBoxFull, boxID, maxSlots)).
		Component("datastore").
		Category(errors.CategoryCapacity).
		Context("box_id", boxID).
		Context("max_slots", maxSlots).
		Build()
}
