// Package task manages deferred work: task descriptors, the queues that
// accept them, and the runner that hands them to background workers.
//
// Producers build a Descriptor and call TaskQueue.Enqueue. Enqueue never runs
// the task; a worker later claims the descriptor, builds the matching Task
// through a Registry, and calls Task.Execute.
package task
