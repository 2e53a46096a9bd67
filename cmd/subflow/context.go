package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"subflow/internal/config"
	"subflow/internal/logging"
)

type commandContext struct {
	configFlag   *string
	envFileFlag  *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, envFileFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		envFileFlag:  envFileFlag,
		logLevelFlag: logLevelFlag,
	}
}

// loadEnvFile applies --env-file. Variables already set in the environment
// win over the file.
func (c *commandContext) loadEnvFile() error {
	path := flagValue(c.envFileFlag)
	if path == "" {
		return nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("resolve env file: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("load env file %s: %w", expanded, err)
	}
	return nil
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, flagValue(c.logLevelFlag))
	})
	return c.logger, c.loggerErr
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
