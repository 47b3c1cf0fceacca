package workflow

import (
	"context"

	"barista/internal/queue"
	"barista/internal/stage"
)

// Health aggregates stage readiness and queue counts for status reporting.
type Health struct {
	Ready  bool
	Stages []stage.Health
	Queue  queue.HealthSummary
}

// Health runs every configured stage's health check and summarizes the queue.
func (m *Manager) Health(ctx context.Context) Health {
	m.mu.RLock()
	stages := make([]pipelineStage, len(m.stages))
	copy(stages, m.stages)
	m.mu.RUnlock()

	report := Health{Ready: true}
	for _, stg := range stages {
		if stg.handler == nil {
			report.Stages = append(report.Stages, stage.Unhealthy(stg.name, "handler not configured"))
			report.Ready = false
			continue
		}
		health := stg.handler.HealthCheck(ctx)
		if !health.Ready {
			report.Ready = false
		}
		report.Stages = append(report.Stages, health)
	}

	if summary, err := m.store.Health(ctx); err == nil {
		report.Queue = summary
	}
	return report
}
