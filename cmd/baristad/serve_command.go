package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"barista/internal/blend"
	"barista/internal/config"
	"barista/internal/daemon"
	"barista/internal/logging"
	"barista/internal/machine"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/recommend"
	"barista/internal/services/llm"
	machinectl "barista/internal/services/machine"
	"barista/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the brew pipeline daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runDaemon(cmd, cfg)
		},
	}
}

func runDaemon(cmd *cobra.Command, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("baristad-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}

	manager := workflow.NewManager(cfg, store, logger)
	manager.Configure(buildStages(cfg, store, logger))

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("baristad shutting down")
	return nil
}

func buildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger) workflow.StageSet {
	completer := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Referer:           cfg.LLM.Referer,
		Title:             cfg.LLM.Title,
		TimeoutSeconds:    cfg.LLM.TimeoutSeconds,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})
	runner := machinectl.NewClient(machinectl.Config{
		BaseURL:        cfg.Machine.BaseURL,
		APIToken:       cfg.Machine.APIToken,
		TimeoutSeconds: cfg.Machine.TimeoutSeconds,
	})
	profiles := profile.NewService(store, cfg, logger)

	return workflow.StageSet{
		Profiler:    profile.NewProfiler(profiles, logger),
		Recommender: recommend.NewRecommender(completer, cfg, logger),
		Blender:     blend.NewBlender(store, cfg, logger),
		Compiler:    machine.NewCompiler(logger),
		Dispatcher:  machine.NewDispatcher(runner, logger),
	}
}
