// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyOrgID is returned when an organization identifier is empty or blank.
	ErrEmptyOrgID = errors.New("organization ID cannot be empty")

	// ErrInvalidOrgID is returned when an organization identifier is malformed.
	ErrInvalidOrgID = errors.New("invalid organization ID")

	// ErrEmptySKU is returned when an inventory item has no SKU.
	ErrEmptySKU = errors.New("inventory item SKU cannot be empty")

	// ErrNegativeQuantity is returned when an inventory item has a negative quantity.
	ErrNegativeQuantity = errors.New("inventory item quantity cannot be negative")

	// ErrQuantityOverflow is returned when the quantities of a snapshot sum past math.MaxInt64.
	ErrQuantityOverflow = errors.New("inventory total quantity overflows")

	// ErrDuplicateSKU is returned when a snapshot contains the same SKU twice.
	ErrDuplicateSKU = errors.New("duplicate SKU in inventory snapshot")
)
