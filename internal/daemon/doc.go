// Package daemon coordinates the long-running nexusclip listener.
//
// It ties the clipboard change listener to the capture pipeline worker under a
// flock-based single-instance lock. Listener registration problems are logged
// and leave the daemon running but inert rather than failing startup.
package daemon
