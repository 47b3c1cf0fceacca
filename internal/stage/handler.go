package stage

import (
	"context"

	"barista/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Brew) error
	Execute(context.Context, *queue.Brew) error
	HealthCheck(context.Context) Health
}
