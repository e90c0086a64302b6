package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mzyy94/niimprint/internal/config"
	"github.com/mzyy94/niimprint/internal/printer"
	"github.com/mzyy94/niimprint/internal/serialport"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	port       string
	baud       int
	logLevel   string

	settings config.Settings // resolved in PersistentPreRunE
}

func main() {
	if err := newRootCmd(&globalFlags{}).Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd(g *globalFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "niimprint",
		Short: "Print labels on Niimbot printers",
		Long: `niimprint drives Niimbot label printers over a serial link.

Settings come from defaults, then the --config file (YAML, TOML or JSON),
then NIIMPRINT_* environment variables, then command line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.resolve(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "config file (.yaml, .toml or .json)")
	pf.StringVarP(&g.port, "port", "p", "", "serial port (default: first found)")
	pf.IntVarP(&g.baud, "baud", "b", printer.DefaultBaudRate, "baud rate")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		portsCmd(),
		configCmd(g),
		statusCmd(g),
		printCmd(g),
		previewCmd(g),
		serveCmd(g),
	)
	return rootCmd
}

func (g *globalFlags) resolve(cmd *cobra.Command) error {
	s := config.DefaultSettings()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		s = loaded
	}
	config.ApplyEnv(&s, os.LookupEnv)

	flags := cmd.Flags()
	if flags.Changed("port") {
		s.Port = g.port
	}
	if flags.Changed("baud") {
		s.BaudRate = g.baud
	}
	if flags.Changed("log-level") {
		s.LogLevel = g.logLevel
	}
	if err := s.Validate(); err != nil {
		return err
	}
	g.settings = s

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(s.LogLevel)})))
	return nil
}

// connect opens the configured printer.
func (g *globalFlags) connect(ctx context.Context, opts ...printer.Option) (*printer.Printer, error) {
	s := g.settings
	opts = append([]printer.Option{
		printer.WithLogger(slog.Default()),
		printer.WithConfig(printer.Config{CommandTimeout: s.CommandTimeout()}),
	}, opts...)
	p := printer.New(serialport.Transport{Name: s.Port}, opts...)
	if err := p.Connect(ctx, s.ConnectOptions()); err != nil {
		return nil, err
	}
	return p, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
