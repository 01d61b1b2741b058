package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spock/internal/config"
	"spock/internal/engine"
)

func newTestCLIEngine(t *testing.T) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dimensions = 64
	cfg.WorkingFolder = t.TempDir()
	cfg.TheoriesPath = filepath.Join(cfg.WorkingFolder, "theories")
	seed := uint32(11)
	cfg.RandomSeed = &seed

	e, err := engine.CreateEngine(engine.Options{Config: cfg})
	if err != nil {
		t.Fatalf("CreateEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown() })

	logger = zap.NewNop()
	eng = e
	theories = nil
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestAskCmdPrintsScoreForIdentityOnTruth(t *testing.T) {
	newTestCLIEngine(t)

	output := captureOutput(t, func() {
		if err := dslRunner("ask", (*engine.SessionApi).Ask)(&cobra.Command{}, []string{"@result", "Truth", "Identity", "Truth"}); err != nil {
			t.Fatalf("ask reported error: %v", err)
		}
	})

	if output == "" {
		t.Fatal("expected non-empty output")
	}
}

func TestTheoryListCmdReportsBaseLogic(t *testing.T) {
	newTestCLIEngine(t)

	output := captureOutput(t, func() {
		if err := theoryListCmd.RunE(&cobra.Command{}, nil); err != nil {
			t.Fatalf("theory list reported error: %v", err)
		}
	})

	if !containsLine(output, "BaseLogic") {
		t.Fatalf("expected BaseLogic in theory list, got: %s", output)
	}
}

func TestTheorySaveThenLoadRoundTrips(t *testing.T) {
	newTestCLIEngine(t)

	captureOutput(t, func() {
		if err := theorySaveCmd.RunE(&cobra.Command{}, []string{"Scratch", "@a Truth Identity Truth\n"}); err != nil {
			t.Fatalf("theory save reported error: %v", err)
		}
	})

	output := captureOutput(t, func() {
		if err := theoryLoadCmd.RunE(&cobra.Command{}, []string{"Scratch"}); err != nil {
			t.Fatalf("theory load reported error: %v", err)
		}
	})

	if !containsLine(output, "Scratch") {
		t.Fatalf("expected theory name in load output, got: %s", output)
	}
}

func TestTheoryBranchThenAncestorCmdReportsLineage(t *testing.T) {
	newTestCLIEngine(t)

	captureOutput(t, func() {
		if err := theorySaveCmd.RunE(&cobra.Command{}, []string{"Base", "@a Truth Identity Truth\n"}); err != nil {
			t.Fatalf("theory save reported error: %v", err)
		}
	})
	base, err := eng.LoadTheory("Base")
	if err != nil {
		t.Fatalf("LoadTheory: %v", err)
	}

	captureOutput(t, func() {
		if err := theoryBranchCmd.RunE(&cobra.Command{}, []string{"Base", "feature"}); err != nil {
			t.Fatalf("theory branch reported error: %v", err)
		}
	})
	branch, err := eng.LoadTheory("Base__feature")
	if err != nil {
		t.Fatalf("LoadTheory: %v", err)
	}

	output := captureOutput(t, func() {
		if err := theoryAncestorCmd.RunE(&cobra.Command{}, []string{base.VersionID, branch.VersionID}); err != nil {
			t.Fatalf("theory ancestor reported error: %v", err)
		}
	})

	if !containsLine(output, "true") {
		t.Fatalf("expected theory branch to be recorded in the lineage index, got: %s", output)
	}
}

func containsLine(haystack, needle string) bool {
	return bytes.Contains([]byte(haystack), []byte(needle))
}
