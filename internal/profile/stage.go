package profile

import (
	"context"
	"log/slog"

	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/services"
	"barista/internal/stage"
)

// Profiler is the pipeline stage that snapshots the requesting user's taste
// profile onto the brew before any recommendation happens.
type Profiler struct {
	service *Service
	logger  *slog.Logger
}

// NewProfiler constructs the profiling stage.
func NewProfiler(service *Service, logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Profiler{
		service: service,
		logger:  logging.NewComponentLogger(logger, "profiler"),
	}
}

// Prepare clears any stale profile snapshot from a previous attempt.
func (p *Profiler) Prepare(_ context.Context, brew *queue.Brew) error {
	brew.ProfileJSON = ""
	brew.ErrorMessage = ""
	return nil
}

// Execute loads or rebuilds the user's profile and attaches it to the brew.
func (p *Profiler) Execute(ctx context.Context, brew *queue.Brew) error {
	prof, err := p.service.Load(ctx, brew.UserID)
	if err != nil {
		return err
	}
	encoded, err := prof.Encode()
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "profiler", "encode profile",
			"Could not encode profile snapshot", err)
	}
	brew.ProfileJSON = encoded
	p.logger.Info("profile attached",
		logging.Int64(logging.FieldBrewID, brew.ID),
		logging.String(logging.FieldUserID, brew.UserID),
		logging.Bool("neutral", prof.IsNeutral()))
	return nil
}

// HealthCheck reports stage readiness.
func (p *Profiler) HealthCheck(context.Context) stage.Health {
	if p.service == nil {
		return stage.Unhealthy("profiler", "profile service not configured")
	}
	return stage.Healthy("profiler")
}
