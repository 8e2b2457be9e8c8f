// Package api handles incoming HTTP requests, request validation, and
// response formatting. Handlers translate HTTP concerns into calls on the
// inventory service and the task store; routing lives with the server.
package api
