package main

import (
	"github.com/spf13/cobra"

	"spock/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive DSL session",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newSession()
		if err != nil {
			return err
		}
		return repl.Run(api)
	},
}
