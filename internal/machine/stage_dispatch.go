package machine

import (
	"context"
	"log/slog"
	"time"

	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/services"
	machinectl "barista/internal/services/machine"
	"barista/internal/stage"
)

// Runner is the slice of the machine controller client the dispatcher needs.
type Runner interface {
	Run(ctx context.Context, brewID int64, commands []string) ([]machinectl.Ack, error)
	HealthCheck(ctx context.Context) error
}

// Dispatcher is the pipeline stage that sends the compiled program to the
// machine. Once Execute starts, the brew is past the point of cancellation:
// hardware that has begun grinding cannot take the beans back.
type Dispatcher struct {
	runner Runner
	logger *slog.Logger
}

// NewDispatcher constructs the dispatch stage.
func NewDispatcher(runner Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "dispatcher"),
	}
}

// Prepare verifies a program is present before committing to dispatch.
func (d *Dispatcher) Prepare(_ context.Context, brew *queue.Brew) error {
	if brew.ProgramJSON == "" {
		return services.Wrap(
			services.ErrCompilation, "dispatcher", "prepare",
			"Brew reached dispatch without a compiled program", nil)
	}
	return nil
}

// Execute runs the program on the machine and stamps the dispatch time.
func (d *Dispatcher) Execute(ctx context.Context, brew *queue.Brew) error {
	program, err := DecodeProgram(brew.ProgramJSON)
	if err != nil {
		return services.Wrap(
			services.ErrCompilation, "dispatcher", "decode program",
			"Stored program payload is unreadable", err)
	}

	now := time.Now().UTC()
	brew.DispatchedAt = &now
	acks, err := d.runner.Run(ctx, brew.ID, program.Commands)
	if err != nil {
		return err
	}
	d.logger.Info("brew dispatched",
		logging.Int64(logging.FieldBrewID, brew.ID),
		logging.Int("commands", len(program.Commands)),
		logging.Int("acks", len(acks)))
	return nil
}

// HealthCheck pings the machine controller.
func (d *Dispatcher) HealthCheck(ctx context.Context) stage.Health {
	if d.runner == nil {
		return stage.Unhealthy("dispatcher", "machine client not configured")
	}
	if err := d.runner.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("dispatcher", err.Error())
	}
	return stage.Healthy("dispatcher")
}
