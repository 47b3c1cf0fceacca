// Package recommend turns free-text taste requests into candidate brewing
// parameters: it builds the model prompts, interprets the untrusted response,
// and falls back to the baseline recipe when the model cannot be understood.
package recommend
