package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spock/internal/versioning"
)

var theoryCmd = &cobra.Command{
	Use:   "theory",
	Short: "Manage persisted theories (list/save/load/branch/merge/ancestor/history)",
}

var theoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every theory persisted in the working folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := eng.ListTheories()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var theorySaveCmd = &cobra.Command{
	Use:   "save <name> <dsl>",
	Short: "Save DSL source as a new theory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("saving theory", zap.String("name", args[0]))
		desc, err := eng.LoadTheory(args[0])
		if err == nil {
			return fmt.Errorf("theory %q already exists (version %s)", args[0], desc.VersionID)
		}
		store := eng.TheoryStore()
		saved, err := store.Save(args[0], args[1])
		if err != nil {
			return err
		}
		if err := eng.Lineage().Record(saved); err != nil {
			return err
		}
		fmt.Printf("saved %s (version %s)\n", saved.Name, saved.VersionID)
		return nil
	},
}

var theoryLoadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Print a persisted theory's source and metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := eng.LoadTheory(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("# %s  version=%s parent=%s merged_from=%v\n", desc.Name, desc.VersionID, desc.ParentVersionID, desc.MergedFrom)
		fmt.Print(desc.Source)
		return nil
	},
}

var theoryBranchCmd = &cobra.Command{
	Use:   "branch <base> <suffix>",
	Short: "Branch a theory into <base>__<suffix>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("branching theory", zap.String("base", args[0]), zap.String("suffix", args[1]))
		desc, err := versioning.BranchTheory(eng.TheoryStore(), eng.Lineage(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("branched %s from %s\n", desc.Name, args[0])
		return nil
	},
}

var mergeStrategyFlag string

var theoryMergeCmd = &cobra.Command{
	Use:   "merge <target> <source>",
	Short: "Merge source into target, resolving declaration conflicts with --strategy",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy := versioning.MergeStrategy(mergeStrategyFlag)
		logger.Info("merging theories", zap.String("target", args[0]), zap.String("source", args[1]), zap.String("strategy", mergeStrategyFlag))
		desc, err := versioning.MergeTheory(eng.TheoryStore(), eng.Lineage(), args[0], args[1], strategy)
		if err != nil {
			return err
		}
		fmt.Printf("merged %s into %s (version %s)\n", args[1], desc.Name, desc.VersionID)
		return nil
	},
}

var theoryAncestorCmd = &cobra.Command{
	Use:   "ancestor <ancestor-version-id> <version-id>",
	Short: "Report whether ancestor-version-id is an ancestor of version-id in the lineage index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := eng.IsAncestor(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(ok)
		return nil
	},
}

var sinceFlag string

var theoryHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List theory version ids recorded since --since (RFC3339, default: the Unix epoch)",
	RunE: func(cmd *cobra.Command, args []string) error {
		since := time.Unix(0, 0).UTC()
		if sinceFlag != "" {
			parsed, err := time.Parse(time.RFC3339, sinceFlag)
			if err != nil {
				return fmt.Errorf("parse --since: %w", err)
			}
			since = parsed
		}
		versions, err := eng.VersionsAfter(cmd.Context(), since)
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	},
}

func init() {
	theoryMergeCmd.Flags().StringVar(&mergeStrategyFlag, "strategy", string(versioning.StrategyFail), "Conflict strategy: target|source|both|consensus|fail")
	theoryHistoryCmd.Flags().StringVar(&sinceFlag, "since", "", "RFC3339 timestamp; only versions recorded after it are listed")
	theoryCmd.AddCommand(theoryListCmd, theorySaveCmd, theoryLoadCmd, theoryBranchCmd, theoryMergeCmd, theoryAncestorCmd, theoryHistoryCmd)
}
