package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/learner-ns/lns/fixtures"
	"github.com/learner-ns/lns/internal/config"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func initCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default config to the home directory",
		Action: func(c *cli.Context) error {
			path := filepath.Join(e.home, config.ConfigFileName)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}
			if err := os.MkdirAll(e.home, 0o700); err != nil {
				return fmt.Errorf("failed to create home directory: %w", err)
			}
			if err := os.WriteFile(path, fixtures.ConfigTemplate, 0o600); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			e.logger.Info("Config written", zap.String("path", path))
			return nil
		},
	}
}
