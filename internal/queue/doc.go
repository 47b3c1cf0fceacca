// Package queue persists brews, feedback, and cached taste profiles in
// SQLite and defines the status state machine the workflow manager drives.
package queue
