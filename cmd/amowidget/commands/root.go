package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"amowidget/internal/components/telemetry"
	"amowidget/lib/restyutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpDir    string

	cfg         Config
	otelRuntime telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:           "amowidget",
	Short:         "amowidget publishes packaged widgets to an amoCRM account.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		cfg, err = loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}

		if cfg.Telemetry.Enabled() {
			otelRuntime, err = telemetry.Setup(cmd.Context(), "amowidget", cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("setup telemetry: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The json5 config file, <name>.local.json5 overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug information.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-dir", "", "Write every http exchange to a file in this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the command line, telemetry is flushed whether the command
// succeeded or not.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)

	flushErr := otelRuntime.Shutdown(context.Background())
	if flushErr != nil {
		slog.Warn("failed to flush telemetry", "err", flushErr)
	}
	return err
}

// dumpOutput returns nil unless --dump-dir was given.
func dumpOutput() (restyutil.Output, error) {
	if dumpDir == "" {
		return nil, nil
	}
	out, err := restyutil.NewFilesystemOutput(dumpDir)
	if err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}
	return out, nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}
