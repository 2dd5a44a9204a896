package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/config"
	"github.com/dselans/undbc/converter"
	"github.com/dselans/undbc/server"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}

	setLogLevel(cfg)

	if !cfg.CLI.Quiet {
		displayConfig(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.CLI.Command() {
	case config.CommandServe:
		err = serve(ctx, cfg)
	default:
		err = convert(ctx, cfg)
	}

	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func setLogLevel(cfg *config.Config) {
	// Validated while loading the config
	level, _ := logrus.ParseLevel(cfg.TOML.Config.LogLevel)
	logrus.SetLevel(level)

	if cfg.CLI.Debug {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.Info("debug mode enabled")
	}

	if cfg.CLI.Quiet {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

func convert(ctx context.Context, cfg *config.Config) error {
	c, err := converter.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to create converter: %s", err)
	}
	defer c.Close()

	stats, err := c.Run(ctx)

	if !cfg.CLI.Quiet {
		logrus.Info("")
		logrus.Info("undbc results:")
		logrus.Infof("  files found: %d", stats.Found)
		logrus.Infof("  skipped (checkpoint): %d", stats.Skipped)
		logrus.Infof("  converted: %d", stats.Converted)
		logrus.Infof("  failed: %d", stats.Failed)
		logrus.Infof("  bytes written: %d", stats.Bytes)
	}

	if err != nil {
		return fmt.Errorf("error during converter run: %s", err)
	}

	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	s, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("unable to create server: %s", err)
	}

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("error during server run: %s", err)
	}

	return nil
}

func displayConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	logrus.Info("undbc settings:")
	logrus.Info("  [CLI]")
	logrus.Infof("  version: %s", config.VERSION)
	logrus.Infof("  command: %s", cfg.CLI.Command())
	logrus.Infof("  debug: %v", cfg.CLI.Debug)
	logrus.Infof("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Infof("  dry run: %v", cfg.CLI.DryRun)
	logrus.Infof("  disable resume: %v", cfg.CLI.DisableResume)
	logrus.Info("")
	logrus.Info("  [CONFIG]")
	logrus.Infof("  config.log_level: %s", cfg.TOML.Config.LogLevel)
	logrus.Infof("  config.num_workers: %d", cfg.TOML.Config.NumWorkers)
	logrus.Infof("  config.window_size: %d", cfg.TOML.Config.WindowSize)
	logrus.Infof("  config.stream_depth: %d", cfg.TOML.Config.StreamDepth)
	logrus.Infof("  config.checkpoint_backend: %s", cfg.TOML.Config.CheckpointBackend)
	logrus.Infof("  config.checkpoint_file: %s", cfg.TOML.Config.CheckpointFile)
	logrus.Infof("  config.checkpoint_interval: %s", cfg.TOML.Config.CheckpointInterval)
	logrus.Infof("  config.redis_addr: %s", cfg.TOML.Config.RedisAddr)
	logrus.Infof("  config.disable_checkpointing: %v", cfg.TOML.Config.DisableCheckpointing)
	logrus.Info("")
	logrus.Info("  [SOURCE]")
	logrus.Infof("  source.files: %v", cfg.TOML.Source.Files)
	logrus.Infof("  source.file_type: %s", cfg.TOML.Source.FileType)
	logrus.Info("")
	logrus.Info("  [DESTINATION]")
	logrus.Infof("  destination.dir: %s", cfg.TOML.Destination.Dir)
	logrus.Infof("  destination.extension: %s", cfg.TOML.Destination.Extension)
	logrus.Infof("  destination.overwrite: %v", cfg.TOML.Destination.Overwrite)
	logrus.Info("")
	logrus.Info("  [CATALOG]")
	logrus.Infof("  catalog.type: %s", cfg.TOML.Catalog.Type)
	logrus.Infof("  catalog.table: %s", cfg.TOML.Catalog.Table)
	logrus.Info("")
	logrus.Info("  [SERVER]")
	logrus.Infof("  server.listen_address: %s", cfg.TOML.Server.ListenAddress)
	logrus.Infof("  server.max_body_size: %d", cfg.TOML.Server.MaxBodySize)
}
