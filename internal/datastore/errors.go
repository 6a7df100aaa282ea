package datastore

import "github.com/pcbaoi/aoi-go/internal/errors"

// Sentinel errors for store operations. These typed errors let callers
// distinguish between failure modes without string matching, in particular
// "no matching row" from "the storage backend failed".
var (
	// ErrStorageUnavailable indicates the database connection could not be
	// established or was lost. Recoverable; callers may retry with backoff.
	ErrStorageUnavailable = errors.NewStd("storage unavailable")

	// ErrInspectionNotFound indicates the requested inspection does not exist.
	ErrInspectionNotFound = errors.NewStd("inspection not found")

	// ErrBoxNotFound indicates the requested sorting box is not configured.
	ErrBoxNotFound = errors.NewStd("box not found")

	// ErrUserNotFound indicates no user row matches the given username.
	ErrUserNotFound = errors.NewStd("user not found")

	// ErrConstraintViolation indicates malformed input rejected before any
	// query was issued.
	ErrConstraintViolation = errors.NewStd("constraint violation")

	// ErrBoxFull indicates a routing attempt against a box whose slots are
	// all occupied. The box needs physical emptying; never clamped silently.
	ErrBoxFull = errors.NewStd("box capacity exceeded")
)
