// Package services holds the error taxonomy and context annotation helpers
// shared by the pipeline stages and the external service clients.
package services
