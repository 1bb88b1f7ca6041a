// Package cli implements the freshguard command line: the HTTP server, the
// schema migrations and the one-shot jobs an external scheduler triggers.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/FreshGuard/internal/config"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

// Build-time variables, injected by cmd/freshguard.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
}

// CLIContext is built once per invocation by the root command.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	// ConfigPath is the file Config was read from, "" for env-only.
	ConfigPath string

	bootstrap appFactory
}

// App returns the wired application for commands that need the engine.
func (c *CLIContext) App(ctx context.Context, opts BootstrapOptions) (*App, error) {
	return c.bootstrap(ctx, c.Config, c.Logger, opts)
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(Bootstrap)
}

func newRootCommand(factory appFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "freshguard",
		Short:   "FreshGuard tracks perishable best-before dates and the daily sort-out workflow",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, factory)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./freshguard.yaml if present)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		NewServeCmd(),
		NewMigrateCmd(),
		NewRemindCmd(),
		NewNotifyCmd(),
		NewArchiveCmd(),
		NewClassifyCmd(),
		NewImportCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory appFactory) error {
	path := resolveConfigPath(opts.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.LogLevel != "" {
		if _, ok := logging.ParseLevel(opts.LogLevel); !ok {
			return fmt.Errorf("invalid --log-level %q", opts.LogLevel)
		}
		cfg.Log.Level = strings.ToLower(opts.LogLevel)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cliOutputPaths(cfg.Log.OutputPaths),
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		ConfigPath:   path,
		bootstrap:    factory,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// resolveConfigPath falls back to ./freshguard.yaml, then to env-only.
func resolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if _, err := os.Stat("freshguard.yaml"); err == nil {
		return "freshguard.yaml"
	}
	return ""
}

// cliOutputPaths keeps stdout free for command results.
func cliOutputPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"stderr"}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "stdout" {
			p = "stderr"
		}
		out = append(out, p)
	}
	return out
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, apperrors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, apperrors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult writes data as JSON when -o json is set, otherwise as text.
// Text output of a fmt.Stringer uses its String method.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "text"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = strings.ToLower(cliCtx.OutputFormat)
	}
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// PrintError writes err to stderr with its error code when it has one.
func PrintError(cmd *cobra.Command, err error) {
	if code := apperrors.GetCode(err); code != apperrors.CodeUnknown {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", code, err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}
