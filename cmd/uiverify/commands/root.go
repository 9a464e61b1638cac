package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/uiverify/internal/browser"
	"github.com/copyleftdev/uiverify/internal/config"
	"github.com/copyleftdev/uiverify/internal/logging"
	"github.com/copyleftdev/uiverify/internal/runs"
)

var (
	configPath string
	baseURL    string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

// errFailed signals a failure that has already been reported to the user.
var errFailed = errors.New("verification failed")

func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil && !errors.Is(err, errFailed) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "uiverify",
		Short:         "Headless-browser checks for web UI behavior",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if baseURL != "" {
				loaded.Target.BaseURL = baseURL
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}
			l, err := logging.New(loaded.Log)
			if err != nil {
				return err
			}
			cfg, logger = loaded, l
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml, $HOME/.uiverify or /etc/uiverify)")
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "base URL of the app under test (overrides target.baseURL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(runCmd(), listCmd(), serveCmd(), doctorCmd())
	return root
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newRunManager builds the browser executor and run manager from cfg.
func newRunManager() (*runs.Manager, error) {
	executor, err := browser.NewManager(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create browser manager: %w", err)
	}
	return runs.NewManager(cfg, executor, logger), nil
}

func shutdownRunManager(rm *runs.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Browser.ShutdownTimeout)
	defer cancel()
	if err := rm.Shutdown(ctx); err != nil {
		logger.Warn("run manager shutdown", zap.Error(err))
	}
}
