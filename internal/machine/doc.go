// Package machine compiles validated parameter sets into firmware command
// programs and dispatches them to the espresso machine controller.
package machine
