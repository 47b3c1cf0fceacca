package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaViolation marks a candidate parameter field whose type could
	// not be coerced at all. Anything repairable is clamped or defaulted
	// instead of raising this.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrInterpretation marks a language-model response with no extractable
	// structured payload. Retryable.
	ErrInterpretation = errors.New("interpretation failure")
	// ErrTimeout marks an unresponsive external dependency.
	ErrTimeout = errors.New("external service timeout")
	// ErrCompilation marks a caller-contract violation in the command
	// compiler. Never retried.
	ErrCompilation = errors.New("compilation error")
	// ErrMachine marks a dispatch failure reported by the machine control API.
	ErrMachine = errors.New("machine execution error")
	// ErrConfiguration marks missing or invalid runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures worth retrying without a more specific class.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a stage error is worth another local attempt.
// Internal invariant violations and schema bugs are excluded: retrying a bug
// does not fix it.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCompilation), errors.Is(err, ErrSchemaViolation), errors.Is(err, ErrConfiguration):
		return false
	case errors.Is(err, ErrInterpretation), errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
