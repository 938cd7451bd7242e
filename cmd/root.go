package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/config"
	"github.com/xkilldash9x/vatm-cli/internal/observability"
	"github.com/xkilldash9x/vatm-cli/internal/service"
)

type contextKey string

const appKey contextKey = "app"

// appState is what PersistentPreRunE hands to subcommands.
type appState struct {
	cfg *config.Config
	// baseDir is the directory of the config file in use, or ".".
	baseDir string
}

func stateFrom(ctx context.Context) (*appState, error) {
	st, ok := ctx.Value(appKey).(*appState)
	if !ok || st == nil {
		return nil, errors.New("configuration not initialized")
	}
	return st, nil
}

// NewRootCommand builds the vatm command tree backed by a live simulator.
func NewRootCommand() *cobra.Command {
	return newRootCommand(service.NewComponentFactory())
}

func newRootCommand(factory service.ComponentFactory) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "vatm",
		Short:         "vatm drives a virtual ATM terminal through scripted transactions.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "vatm"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting vatm", zap.String("version", Version))

			baseDir := "."
			if used := v.ConfigFileUsed(); used != "" {
				baseDir = filepath.Dir(used)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, &appState{cfg: cfg, baseDir: baseDir}))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newRunCmd(factory))
	rootCmd.AddCommand(newDispatchCmd(factory))
	rootCmd.AddCommand(newScreenCmd(factory))
	rootCmd.AddCommand(newDevicesCmd(factory))
	rootCmd.AddCommand(newGroupsCmd(factory))
	rootCmd.AddCommand(newRunsCmd(factory))
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with ctx and logs a failure before
// returning it.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command aborted.")
		} else {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads in the config file and ENV variables if set.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("VATM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment only.
	}
	return nil
}
