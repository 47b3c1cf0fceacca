package machine

import (
	"context"
	"log/slog"

	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/services"
	"barista/internal/stage"
)

// Compiler is the pipeline stage that turns the final parameter set into a
// machine program.
type Compiler struct {
	logger *slog.Logger
}

// NewCompiler constructs the compilation stage.
func NewCompiler(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compiler{logger: logging.NewComponentLogger(logger, "compiler")}
}

// Prepare clears any program left by a previous attempt.
func (c *Compiler) Prepare(_ context.Context, brew *queue.Brew) error {
	brew.ProgramJSON = ""
	return nil
}

// Execute compiles the stored final parameters into a command program.
func (c *Compiler) Execute(_ context.Context, brew *queue.Brew) error {
	final, err := stage.DecodeParams(brew.FinalJSON)
	if err != nil {
		return err
	}
	program, err := Compile(final, brew.ServingSize)
	if err != nil {
		return err
	}
	encoded, err := program.JSON()
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "compiler", "encode program",
			"Could not encode compiled program", err)
	}
	brew.ProgramJSON = encoded
	c.logger.Info("program compiled",
		logging.Int64(logging.FieldBrewID, brew.ID),
		logging.Int("commands", len(program.Commands)),
		logging.String("serving", string(program.Serving)))
	return nil
}

// HealthCheck reports stage readiness. Compilation is pure computation.
func (c *Compiler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("compiler")
}
