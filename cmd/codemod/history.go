package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/codemod"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in codemods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var out []CLICodemod
		for _, c := range codemod.Catalog() {
			kind := "go"
			if c.Script {
				kind = "risor"
			}
			out = append(out, CLICodemod{Name: c.Name, Kind: kind, Description: c.Description})
		}
		return outputResult("list", out)
	},
}

var (
	flagLimit int
	flagRunID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs, or the files of one run",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum number of runs to show")
	historyCmd.Flags().StringVar(&flagRunID, "run", "", "show the file results of this run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return outputError("history", err)
	}
	repoRoot := findRepoRoot(wd)
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return outputError("history", err)
	}
	dbPath := resolveDBPath(repoRoot, cfg)
	if _, err := os.Stat(dbPath); err != nil {
		return outputError("history", fmt.Errorf("no run database at %s", dbPath))
	}

	engine, err := codemod.New(dbPath, "")
	if err != nil {
		return outputError("history", fmt.Errorf("opening database: %w", err))
	}
	defer engine.Close()

	if flagRunID != "" {
		results, err := engine.FileResults(flagRunID)
		if err != nil {
			return outputError("history", err)
		}
		out := make([]CLIFileResult, 0, len(results))
		for _, r := range results {
			out = append(out, toCLIFileResult(r))
		}
		return outputResult("history", out)
	}

	runs, err := engine.History(flagLimit)
	if err != nil {
		return outputError("history", err)
	}
	out := make([]CLIRunRecord, 0, len(runs))
	for _, r := range runs {
		out = append(out, toCLIRunRecord(r))
	}
	return outputResult("history", out)
}
