// Package workflow drives brews through the personalization pipeline:
// profile, recommend, blend, compile, dispatch. The manager polls the queue,
// runs one stage at a time, persists every transition, and honors
// cancellation up to the moment a program reaches the machine.
package workflow
