// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios with
// errors.Is; storage failures are passed through wrapped but otherwise
// uninterpreted.
package repository

import "errors"

// ErrNotFound is returned when no record exists for the requested id.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrExists is returned by Create when the id is already taken.
var ErrExists = errors.New("already exists")

// ErrInvalidPatch is returned when a patch is not a JSON object or does not
// fit the entity's shape.
var ErrInvalidPatch = errors.New("invalid patch")

// ErrInvalidCursor is returned for a page cursor the index did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("user with this email already exists")

// ErrAlreadyPaid is returned when a student's dues for a month are already
// recorded.
var ErrAlreadyPaid = errors.New("payment for this month already recorded")

// ErrPaymentProcessed is returned when a gateway payment id was already
// credited.
var ErrPaymentProcessed = errors.New("payment already processed")

// ErrTokenInvalid is returned for unknown, used or expired mailed tokens.
var ErrTokenInvalid = errors.New("token is invalid or has expired")

// ErrForbidden is returned when the caller attempts an operation on a
// record that belongs to someone else.
var ErrForbidden = errors.New("forbidden")
