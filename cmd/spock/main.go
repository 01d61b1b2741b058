// Package main implements the spock CLI entry point — a geometric
// operating system for neuro-symbolic reasoning over high-dimensional
// hypervectors.
//
// # File Index
//
//   - main.go        - Entry point, rootCmd, global flags, engine lifecycle
//   - cmd_dsl.go     - learn/ask/prove/explain/plan/solve/summarise
//   - cmd_theory.go  - theory list/save/load/branch/merge/ancestor/history
//   - cmd_repl.go    - repl
//   - render.go      - shared lipgloss/glamour result rendering
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"spock/internal/config"
	"spock/internal/engine"
	"spock/internal/logging"
)

var (
	configPath string
	theories   []string
	verbose    bool

	logger *zap.Logger
	eng    *engine.Engine
)

var rootCmd = &cobra.Command{
	Use:   "spock",
	Short: "spock - a geometric operating system for neuro-symbolic reasoning",
	Long: `spock is a geometric operating system: a DSL, executor, and
semantic-gradient-descent planner built on high-dimensional hypervectors.

Statements compose eight kernel verbs (Add, Bind, Negate, Distance, Move,
Modulate, Identity, Normalise) and theory-defined macros; SessionApi
(learn/ask/prove/plan/solve/summarise/explain) runs them against a
canonical Truth vector and reports how closely the result projects
onto it.

Run "spock repl" for an interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("initialize zap logger: %w", err)
		}

		eng, err = engine.CreateEngine(engine.Options{ConfigPath: configPath})
		if err != nil {
			return fmt.Errorf("create engine: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if eng != nil {
			if err := eng.Shutdown(); err != nil {
				logger.Warn("engine shutdown reported errors", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config YAML (default: none; built-in defaults plus SPOCK_* environment overrides)")
	rootCmd.PersistentFlags().StringSliceVarP(&theories, "theory", "t", nil, "Theory name to overlay at session start (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level console logging")

	rootCmd.AddCommand(learnCmd, askCmd, proveCmd, planCmd, solveCmd, summariseCmd, explainCmd)
	rootCmd.AddCommand(theoryCmd)
	rootCmd.AddCommand(replCmd)
}

// newSession creates a session overlaying every "--theory" flag in the
// order given, then wraps it as a SessionApi.
func newSession() (*engine.SessionApi, error) {
	sess, err := eng.CreateSession(theories...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return eng.NewSessionApi(sess), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.CloseAll()
}
