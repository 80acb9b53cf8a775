package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/campusconnect/campus/internal/aiengine"
	"github.com/campusconnect/campus/internal/api"
	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/coach"
	"github.com/campusconnect/campus/internal/config"
	"github.com/campusconnect/campus/internal/db"
	"github.com/campusconnect/campus/internal/history"
	"github.com/campusconnect/campus/internal/interview"
	"github.com/campusconnect/campus/internal/live"
	"github.com/campusconnect/campus/internal/llm"
	"github.com/campusconnect/campus/internal/maintenance"
)

const defaultConfigPath = "campus.yaml"

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		migrate    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CampusConnect API server",
		Long: `Starts the REST API and the live interview websocket.

Reads .env and the config file, connects to the configured database, wires
the AI interviewer (external engine or in-process LLM) and schedules
maintenance sweeps. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, migrate)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run AutoMigrate before serving")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, migrate bool) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if migrate {
		if err := db.AutoMigrate(gormDB); err != nil {
			return err
		}
	}

	ai, err := newInterviewer(cfg)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	var dial live.Dialer
	if cfg.Voice.DeepgramAPIKey != "" {
		dial = live.DeepgramDialer(cfg.Voice.DeepgramAPIKey, cfg.Voice.SampleRate)
	}

	ctx, cancel := withInterrupt(cmd)
	defer cancel()

	go func() {
		sweeper := &maintenance.Sweeper{DB: gormDB, SlotTimeout: cfg.SlotTimeout()}
		if err := maintenance.Run(ctx, cfg.Maintenance.Schedule, sweeper); err != nil {
			log.Printf("serve: maintenance: %v", err)
		}
	}()

	fmt.Fprintf(out, "AI provider: %s\n", cfg.AI.Provider)
	return api.Start(ctx, api.StartOpts{
		DB:          gormDB,
		Config:      cfg,
		Out:         out,
		Interviewer: ai,
		Analyzer:    ai,
		Calls:       call.NewStore(store),
		Dial:        dial,
	})
}

// withInterrupt returns a context cancelled on SIGINT or SIGTERM.
func withInterrupt(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(cmd.Context())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// loadConfig reads .env from the working directory, then the config file,
// so environment overrides see the .env values.
func loadConfig(configPath string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", databaseLabel(cfg.Database), err)
	}
	return cfg, gormDB, nil
}

func databaseLabel(d config.DatabaseConfig) string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s at %s:%d", d.Name, d.Host, d.Port)
}

// aiService runs calls and scores them.
type aiService interface {
	interview.Interviewer
	interview.Analyzer
}

// newInterviewer returns the external AI engine client or, with
// ai.provider "llm", an in-process coach on the configured model.
func newInterviewer(cfg *config.Config) (aiService, error) {
	if cfg.AI.Provider != "llm" {
		return aiengine.New(cfg.AI.EngineURL, cfg.AITimeout()), nil
	}

	chat, err := llm.Open(cfg.AI.Model, cfg.LLMAPIKey, llm.WithJSONOutput(), llm.WithTemperature(0.4), llm.WithMaxTokens(1024))
	if err != nil {
		return nil, fmt.Errorf("open interviewer model: %w", err)
	}
	prompt, err := llm.Open(cfg.AI.Model, cfg.LLMAPIKey, llm.WithTemperature(0.7))
	if err != nil {
		return nil, fmt.Errorf("open prompt model: %w", err)
	}
	return coach.New(chat, prompt), nil
}
