// Package domain contains the core business entities and value objects of the
// inventory sync service: organization identifiers, inventory items and the
// per-organization inventory snapshot. It is independent of storage and
// transport concerns.
package domain
