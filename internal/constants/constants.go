// Package constants holds named values shared across packages: error codes,
// component names for log records, HTTP header names, and task types.
package constants

// Error codes carried by typed errors and returned to API clients.
const (
	// CodeInventoryServiceUnavailable is the fixed code of errors raised when
	// the upstream inventory service cannot be reached or reports itself down.
	CodeInventoryServiceUnavailable = "INVENTORY_SERVICE_UNAVAILABLE"

	// CodeInventoryAPIError marks a non-success response from the inventory API
	// that carries its own error payload.
	CodeInventoryAPIError = "INVENTORY_API_ERROR"

	// CodeExternalService is the generic external service failure code.
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
)

// External service names.
const (
	ServiceInventory = "inventory"
)

// Task types.
const (
	TaskTypeUpdateOrgInventory = "update_org_inventory"
)

// Component names used in the "component" log attribute.
const (
	ComponentInventoryController = "inventory_controller"
	ComponentInventoryClient     = "inventory_client"
	ComponentScheduler           = "scheduler"
	ComponentTaskListener        = "task_listener"
)

// HTTP header names.
const (
	HeaderTraceID    = "X-Trace-ID"
	HeaderOrgID      = "X-Org-ID"
	HeaderUserAgent  = "User-Agent"
	HeaderAccept     = "Accept"
	HeaderRetryAfter = "Retry-After"
)

// UserAgent is sent on every upstream request.
const UserAgent = "invsync/1.0"

// NotifyChannelTaskEnqueued is the PostgreSQL NOTIFY channel signalled when a
// task row is inserted.
const NotifyChannelTaskEnqueued = "invsync_task_enqueued"
