package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spock/internal/engine"
)

// dslRunner adapts one SessionApi method into a cobra RunE.
func dslRunner(name string, call func(*engine.SessionApi, context.Context, string) engine.Result) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		dsl := strings.Join(args, " ")
		logger.Info("running DSL statement", zap.String("method", name), zap.String("dsl", dsl))

		api, err := newSession()
		if err != nil {
			return err
		}
		result := call(api, cmd.Context(), dsl)
		printResult(result)
		if !result.Success {
			return fmt.Errorf("%s: script reported failure", name)
		}
		return nil
	}
}

var learnCmd = &cobra.Command{
	Use:   "learn <dsl>",
	Short: "Run DSL statements that grow the session's or a theory's symbol table",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("learn", (*engine.SessionApi).Learn),
}

var askCmd = &cobra.Command{
	Use:   "ask <dsl>",
	Short: "Run a DSL statement and report how closely its result projects onto Truth",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("ask", (*engine.SessionApi).Ask),
}

var proveCmd = &cobra.Command{
	Use:   "prove <dsl>",
	Short: "Run a DSL statement and read Success plus a high Score as proof the relation holds",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("prove", (*engine.SessionApi).Prove),
}

var planCmd = &cobra.Command{
	Use:   "plan <dsl>",
	Short: "Run a Plan verb statement and return its PLAN-kind result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("plan", (*engine.SessionApi).Plan),
}

var solveCmd = &cobra.Command{
	Use:   "solve <dsl>",
	Short: "Run a Solve verb statement and return its SOLUTION-kind result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("solve", (*engine.SessionApi).Solve),
}

var summariseCmd = &cobra.Command{
	Use:   "summarise <dsl>",
	Short: "Run a DSL statement and append the result's nearest named neighbors",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("summarise", (*engine.SessionApi).Summarise),
}

var explainCmd = &cobra.Command{
	Use:   "explain <dsl>",
	Short: "Run a DSL statement and cross-check its facts against the symbolic bridge",
	Args:  cobra.MinimumNArgs(1),
	RunE:  dslRunner("explain", (*engine.SessionApi).Explain),
}
