package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/config"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/logging"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

// defaultConfigPath is used when --config is not given.
const defaultConfigPath = "xrdspot.toml"

func newRootCommand() *cobra.Command {
	var configFlag string
	var levelFlag string

	ctx := newCommandContext(&configFlag, &levelFlag)

	rootCmd := &cobra.Command{
		Use:           "xrdspot",
		Short:         "Integrate XRD frames and reduce peak windows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureSettings()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Settings file path (default "+defaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newFindCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newPeakCommand(ctx))
	rootCmd.AddCommand(newPlotCommand(ctx))

	return rootCmd
}

type commandContext struct {
	configFlag *string
	levelFlag  *string

	settingsOnce sync.Once
	settings     *config.Settings
	settingsErr  error
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, levelFlag: levelFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if p := strings.TrimSpace(*c.configFlag); p != "" {
			return p
		}
	}
	return defaultConfigPath
}

func (c *commandContext) ensureSettings() (*config.Settings, error) {
	c.settingsOnce.Do(func() {
		c.settings, c.settingsErr = config.Load(c.configPath())
	})
	return c.settings, c.settingsErr
}

// logger builds the logger for cmd from the logging section of the
// settings and the --log-level flag.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	opts := logging.Options{Output: cmd.ErrOrStderr()}
	if s, err := c.ensureSettings(); err == nil {
		opts.Level = s.Logging.Level
		opts.Format = s.Logging.Format
		opts.File = s.Logging.File
		opts.MaxSizeMB = s.Logging.MaxSizeMB
		opts.MaxAgeDays = s.Logging.MaxAgeDays
	}
	if c.levelFlag != nil && *c.levelFlag != "" {
		opts.Level = *c.levelFlag
	}
	return logging.New(opts)
}

// openStore opens the configured intermediate container, which must
// already exist.
func (c *commandContext) openStore(cmd *cobra.Command) (*store.Store, *config.Settings, error) {
	s, err := c.ensureSettings()
	if err != nil {
		return nil, nil, err
	}
	if err := s.Require(config.KeyTmpHDFPath); err != nil {
		return nil, nil, err
	}
	logger, err := c.logger(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.OpenExisting(s.TmpHDFPath, store.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return st, s, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
