// Package inventoryapi is the HTTP client for the upstream inventory service.
//
// A ClientFactory hands out clients scoped to one organization. Failures are
// reported as typed errors: an *ExternalServiceError with code
// INVENTORY_SERVICE_UNAVAILABLE when the service cannot be reached or answers
// 502, 503 or 504, and an *APIError carrying the response and its decoded
// error list for any other non-success status.
package inventoryapi
