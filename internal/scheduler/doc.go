// Package scheduler enqueues periodic inventory refreshes for a fixed set of
// organizations on a cron schedule.
package scheduler
