// Package main hosts the baristad CLI entrypoint and command graph.
//
// The Cobra-based command tree queues brew requests, records feedback,
// inspects the queue, and runs the background pipeline daemon. It centralizes
// configuration resolution and logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
