package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophnotes/internal/client/iocli"
	"github.com/iudanet/gophnotes/internal/config"
)

// options глобальные флаги, перекрывают значения из файла конфигурации
type options struct {
	configPath string
	serverURL  string
	token      string
	dataDir    string
	driver     string
	logLevel   string
}

// VersionInfo сведения о сборке для команды version
type VersionInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// NewRootCommand собирает дерево команд gophnotes
func NewRootCommand(version VersionInfo) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "gophnotes",
		Short:         "Offline-first notes synchronized through CRDT documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", filepath.Join(config.Default().DataDir, "config.yaml"), "Path to config file")
	flags.StringVar(&opts.serverURL, "server", "", "Server URL (overrides server_url)")
	flags.StringVar(&opts.token, "token", "", "Bearer token (overrides token)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Directory for local notes (overrides data_dir)")
	flags.StringVar(&opts.driver, "storage", "", "Storage driver: bolt, badger, sqlite (overrides storage_driver)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log_level)")

	rootCmd.AddCommand(
		newNewCommand(opts),
		newShowCommand(opts),
		newAppendCommand(opts),
		newTitleCommand(opts),
		newStarCommand(opts),
		newListCommand(opts),
		newDeleteCommand(opts),
		newCompactCommand(opts),
		newSyncCommand(opts),
		newWatchCommand(opts),
		newVersionCommand(version),
	)

	return rootCmd
}

// loadConfig читает файл конфигурации и применяет флаги, заданные явно
func (o *options) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = o.serverURL
	}
	if flags.Changed("token") {
		cfg.Token = o.token
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.dataDir
	}
	if flags.Changed("storage") {
		cfg.StorageDriver = o.driver
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// run открывает окружение на время команды и закрывает его после,
// в том числе при ошибке.
func (o *options) run(fn func(ctx context.Context, c *Cli, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := o.loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		}))
		ioc := iocli.NewStdio(cmd.InOrStdin(), cmd.OutOrStdout())

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		c, err := Open(ctx, ioc, logger, cfg)
		if err != nil {
			return err
		}
		defer func() {
			// журналы сворачиваются и после отмены ctx
			if closeErr := c.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		return fn(ctx, c, args)
	}
}

func newVersionCommand(version VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GophNotes Client\n")
			fmt.Fprintf(out, "Version:    %s\n", version.Version)
			fmt.Fprintf(out, "Build Date: %s\n", version.BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", version.GitCommit)
		},
	}
}
