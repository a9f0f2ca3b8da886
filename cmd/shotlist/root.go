package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/shotlist/internal/config"
	"github.com/jackzampolin/shotlist/internal/home"
	"github.com/jackzampolin/shotlist/internal/llmcall"
	"github.com/jackzampolin/shotlist/internal/output"
	"github.com/jackzampolin/shotlist/internal/prompts"
	imageryprompts "github.com/jackzampolin/shotlist/internal/prompts/imagery"
	shotsprompts "github.com/jackzampolin/shotlist/internal/prompts/shots"
	tablesprompts "github.com/jackzampolin/shotlist/internal/prompts/tables"
	"github.com/jackzampolin/shotlist/internal/providers"
	"github.com/jackzampolin/shotlist/internal/svcctx"
	"github.com/jackzampolin/shotlist/version"
)

var (
	cfgFile      string
	workspaceDir string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "shotlist",
	Short: "Turn scripts into shot lists, image prompts and prompt tables",
	Long: `Shotlist turns film scripts into image generation material.

The pipeline includes:
  - shots:       script (.txt/.rtf) -> numbered shot list
  - imagery:     shot list -> image prompts per shot
  - tables:      image prompts -> scene/shot/prompt CSV tables
  - consolidate: many prompt tables -> one consolidated CSV

Generated files live in the workspace (default: ./text_files).`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.shotlist/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&workspaceDir, "workspace", "", "workspace directory (default: ./text_files)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := output.ParseFormat(outputFormat); err != nil {
			return err
		}
		output.SetFormat(outputFormat)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads .env and the config file.
func loadConfig() (*config.Manager, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cm, nil
}

// setupServices builds the services the pipeline commands share and attaches
// them to the command context. The returned func releases them.
func setupServices(cmd *cobra.Command) (*svcctx.Services, func(), error) {
	logger := newLogger()
	slog.SetDefault(logger)

	cm, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg := cm.Get()

	ws := workspaceDir
	if ws == "" {
		ws = cfg.Workspace
	}
	h, err := home.New(ws)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig(), logger)
	cm.OnChange(func(c *config.Config) {
		registry.Reload(c.ToProviderRegistryConfig())
	})

	promptsDir := cfg.PromptsDir
	if promptsDir == "" {
		promptsDir = h.PromptsDir()
	}
	resolver := newResolver(promptsDir, logger)

	store, err := llmcall.OpenStore(h.CallsDBPath())
	if err != nil {
		return nil, nil, err
	}

	svc := &svcctx.Services{
		Config:       cm,
		Registry:     registry,
		Prompts:      resolver,
		Recorder:     llmcall.NewRecorder(store, logger),
		LLMCallStore: store,
		Logger:       logger,
		Home:         h,
	}
	cmd.SetContext(svcctx.WithServices(cmd.Context(), svc))

	logger.Debug("services ready",
		"config", cm.ConfigFile(), "workspace", h.Path(), "providers", registry.ListLLM())
	return svc, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close call store", "error", err)
		}
	}, nil
}

func newResolver(dir string, logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(dir, logger)
	shotsprompts.RegisterPrompts(r)
	imageryprompts.RegisterPrompts(r)
	tablesprompts.RegisterPrompts(r)
	return r
}
