// Package inventory implements the inventory refresh use case.
//
// Controller is the worker side: it pulls an organization's items from the
// upstream inventory API and replaces the stored snapshot. Service is the
// request side: it asks for a refresh by emitting a task request event and
// reads stored snapshots back.
package inventory
