package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
)

var (
	checklistSeverity    string
	checklistMinSeverity string
	checklistRule        string
	checklistRender      bool
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Print the compliance checklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printChecklist(cmd.OutOrStdout(), checklist.Default(), checklistFilter{
			Severity:     checklistSeverity,
			MinSeverity:  checklistMinSeverity,
			Rule:         checklistRule,
			Render:       checklistRender,
			Intermediary: cfg.Analysis.Intermediary,
		})
	},
}

func init() {
	checklistCmd.Flags().StringVar(&checklistSeverity, "severity", "", "only items with this severity (Critical, High, Medium, Low)")
	checklistCmd.Flags().StringVar(&checklistMinSeverity, "min-severity", "", "only items at least this severe")
	checklistCmd.Flags().StringVar(&checklistRule, "rule", "", "only items whose rule contains this text, e.g. 201(h)")
	checklistCmd.Flags().BoolVar(&checklistRender, "render", false, "print the checklist text sent to the model")
	rootCmd.AddCommand(checklistCmd)
}

type checklistFilter struct {
	Severity     string
	MinSeverity  string
	Rule         string
	Render       bool
	Intermediary string
}

func printChecklist(w io.Writer, catalog *checklist.Catalog, f checklistFilter) error {
	if f.Render {
		_, err := fmt.Fprintln(w, catalog.RenderChecklist(f.Intermediary))
		return err
	}

	q, err := checklist.ParseQuery(f.Severity, f.MinSeverity, f.Rule)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(catalog.Select(q))
}
