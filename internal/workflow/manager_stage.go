package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/services"
)

func (m *Manager) processBrew(ctx context.Context, brew *queue.Brew) error {
	stg, ok := m.stageByStart[brew.Status]
	if !ok {
		m.logger.Warn("no stage configured for status",
			logging.String("status", string(brew.Status)))
		m.waitOrShutdown(ctx, m.pollInterval)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(ctx, requestID)
	stageCtx = services.WithBrewID(stageCtx, brew.ID)
	stageCtx = services.WithUserID(stageCtx, brew.UserID)
	stageCtx = services.WithStage(stageCtx, stg.name)
	stageLogger := logging.WithContext(stageCtx, m.logger)

	if brew.CancelRequested {
		return m.cancelBrew(stageCtx, stageLogger, brew)
	}

	if err := m.transitionToProcessing(stageCtx, stg, brew); err != nil {
		stageLogger.Error("failed to transition brew to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	// A cancel granted between the fetch and the processing transition is
	// still binding: once the status is dispatching the store refuses new
	// cancels, so this read sees every cancel that can still win.
	fresh, err := m.store.GetBrew(stageCtx, brew.ID)
	if err == nil && fresh != nil && fresh.CancelRequested {
		brew.CancelRequested = true
		return m.cancelBrew(stageCtx, stageLogger, brew)
	}

	return m.executeStage(stageCtx, stageLogger, stg, brew)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, brew *queue.Brew) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("request_text", strings.TrimSpace(brew.RequestText)))

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		brew.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.UpdateBrew(ctx, brew); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, brew); err != nil {
		m.handleStageFailure(ctx, stg.name, brew, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.UpdateBrew(ctx, brew); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	if execErr := handler.Execute(ctx, brew); execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, brew, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if brew.Status == stg.processingStatus || brew.Status == "" {
		brew.Status = stg.doneStatus
	}
	if err := m.store.UpdateBrew(ctx, brew); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(brew.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)))
	m.setLastBrew(brew)
	return nil
}

func (m *Manager) transitionToProcessing(ctx context.Context, stg pipelineStage, brew *queue.Brew) error {
	brew.Status = stg.processingStatus
	brew.ErrorMessage = ""
	if err := m.store.UpdateBrew(ctx, brew); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastBrew(brew)
	return nil
}

func (m *Manager) cancelBrew(ctx context.Context, stageLogger *slog.Logger, brew *queue.Brew) error {
	brew.SetFailed(queue.CancelledReason)
	if err := m.store.UpdateBrew(ctx, brew); err != nil {
		stageLogger.Error("failed to persist cancellation", logging.Error(err))
		m.setLastError(err)
		return err
	}
	stageLogger.Info("brew cancelled before dispatch",
		logging.String(logging.FieldEventType, "brew_cancelled"))
	m.setLastBrew(brew)
	return nil
}

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, brew *queue.Brew, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	brew.SetFailed(message)

	m.logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.Int64(logging.FieldBrewID, brew.ID),
		logging.Bool("retryable", services.Retryable(stageErr)),
		logging.Error(stageErr))

	if err := m.store.UpdateBrew(ctx, brew); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			m.logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastBrew(brew)
}
