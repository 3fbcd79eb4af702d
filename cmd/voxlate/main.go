// Command voxlate translates speech or typed text into a target language and
// speaks the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/harunnryd/voxlate/pkg/voxlate"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries the flags shared by every subcommand.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	providers  *voxlate.ProviderRegistry
}

func newRootCmd(providers *voxlate.ProviderRegistry) *cobra.Command {
	if providers == nil {
		providers = voxlate.NewProviderRegistry()
		registerProviders(providers)
	}
	a := &app{providers: providers}

	root := &cobra.Command{
		Use:   "voxlate",
		Short: "Continuous voice translation",
		Long: `voxlate listens to the microphone (or takes typed text), translates each
utterance into the selected target language and speaks the translation.`,
		Version:       runner.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a yaml config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newTranslateCmd(a),
		newLiveCmd(a),
		newHistoryCmd(a),
		newLanguagesCmd(),
	)
	return root
}

// loadConfig reads the dotenv file, then the yaml config and environment.
// A missing default dotenv file is not an error.
func (a *app) loadConfig() (voxlate.Config, error) {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || a.envFile != ".env" {
				return voxlate.Config{}, fmt.Errorf("load env file: %w", err)
			}
		}
	}
	cfg, err := voxlate.LoadConfig(a.configPath)
	if err != nil {
		return voxlate.Config{}, err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	return cfg, nil
}

// commandLogger keeps logs off stdout so command output stays pipeable.
func (a *app) commandLogger(cmd *cobra.Command, cfg voxlate.Config) *slog.Logger {
	return newLogger(cmd.ErrOrStderr(), cfg)
}

func newLogger(w io.Writer, cfg voxlate.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logging.ParseLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) newEngine(ctx context.Context, cmd *cobra.Command, cfg voxlate.Config, hooks runner.Hooks) (*voxlate.Engine, error) {
	return voxlate.NewEngine(ctx, voxlate.EngineOptions{
		Config:    cfg,
		Providers: a.providers,
		Logger:    a.commandLogger(cmd, cfg),
		Hooks:     hooks,
	})
}
