package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"spock/internal/engine"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
)

// printResult renders a SessionApi Result the way the teacher's direct
// action commands print backend output: a colored status line, a
// glamour-rendered resultTheory block, then the raw execution trace.
func printResult(r engine.Result) {
	if r.Success {
		fmt.Printf("%s score=%s\n", successStyle.Render("OK"), scoreStyle.Render(fmt.Sprintf("%.4f", r.Score)))
	} else {
		fmt.Println(failureStyle.Render("FAILED"))
	}

	body := r.ResultTheory
	if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
		if out, err := renderer.Render("```\n" + body + "\n```"); err == nil {
			body = out
		}
	}
	fmt.Print(body)

	if r.ExecutionTrace != "" {
		fmt.Println(lipgloss.NewStyle().Faint(true).Render("--- trace ---"))
		fmt.Println(r.ExecutionTrace)
	}
}
