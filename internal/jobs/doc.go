// Package jobs persists pipeline jobs in SQLite and defines the job state
// machine shared by the scheduler, IPC layer, and CLI.
package jobs
