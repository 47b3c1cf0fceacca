// Package machine provides the HTTP client for the espresso machine
// controller that executes compiled brew programs.
package machine
