package workflow

import (
	"context"
	"errors"
	"time"

	"barista/internal/logging"
)

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		brew, err := m.store.NextForStatuses(ctx, m.startStatuses...)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next brew",
				logging.Error(err))
			if !m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second) {
				return
			}
			continue
		}
		if brew == nil {
			if !m.waitOrShutdown(ctx, m.pollInterval) {
				return
			}
			continue
		}

		if err := m.processBrew(ctx, brew); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
