// Package scheduler admits, queues, and executes pipeline jobs with
// per-owner fairness and bounded concurrency.
package scheduler
