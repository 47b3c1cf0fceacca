// Package api exposes the entry points callers use to queue brews, submit
// feedback, and inspect the queue. Functions open their own store from the
// supplied configuration so CLI commands and the daemon share one database.
package api
