// Package main provides the stageflow binary entry point.
// Stageflow loads workflow definitions and exposes the stage engine for
// validating, inspecting, and simulating workflow runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/stageflow/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "stageflow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath  string
		definitions []string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "stageflow",
		Short: "Workflow stage engine",
		Long: `Stageflow resolves task workflow annotations against named stage
definitions and computes stage transitions, terminality, and elapsed
time across a workflow run.

Definitions are plain YAML files; document integration (annotation
parsing and task rewriting) lives in the editing layer, not here.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringSliceVar(&definitions, "definitions", nil, "Definition glob patterns (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	newApplication := func() (*App, error) {
		return NewApp(AppOptions{
			ConfigPath:  configPath,
			Definitions: definitions,
			Logger:      newLogger(logLevel),
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default user config file if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(newLogger(logLevel)).EnsureUserConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [patterns...]",
		Short: "Validate workflow definition files",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Validate(cmd.OutOrStdout(), args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List loaded workflows and their stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()
			return app.List(cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Reload definitions as their files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Watch(ctx)
		},
	})

	simulate := &cobra.Command{
		Use:   "simulate <workflow>",
		Short: "Walk a workflow from a stage to its end",
		Long: `Simulate resolves the workflow and repeatedly applies the transition
rules, printing each hop until the run reaches a final stage or holds
in place. Without --from the walk starts at the workflow root.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication()
			if err != nil {
				return err
			}
			defer app.Close()
			from, _ := cmd.Flags().GetString("from")
			return app.Simulate(cmd.OutOrStdout(), args[0], from)
		},
	}
	simulate.Flags().String("from", "", "Starting stage, optionally stage.substage")
	cmd.AddCommand(simulate)

	return cmd
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
