// Package daemon wires the job store, content store, recognition engine,
// scheduler, and playlists into a single-instance background service.
package daemon
