// Package llm provides a retrying, rate-limited client for JSON-only chat
// completions against an OpenRouter-compatible endpoint.
package llm
