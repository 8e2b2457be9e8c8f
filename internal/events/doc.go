// Package events decouples the components that ask for background work from
// the component that queues it.
//
// A producer emits a TaskRequestEvent naming a task type and an organization;
// registered handlers turn it into queued work. Neither side imports the other.
package events
