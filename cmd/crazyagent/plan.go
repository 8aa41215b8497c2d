package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rahul/crazyagent/internal/agent"
	"github.com/rahul/crazyagent/internal/session"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <instruction>",
	Short: "Show the steps an instruction compiles to",
	Long: `Plan compiles an instruction and prints the resulting steps without
executing anything. It exits non-zero when no registered app is named.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var planJSON bool

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the steps as JSON")
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan := agent.NewPlanBuilder(nil).BuildPlan(strings.Join(args, " "))
	if plan.IsEmpty() {
		return session.ErrNotUnderstood
	}

	out := cmd.OutOrStdout()
	if planJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan.Steps())
	}
	_, err := fmt.Fprint(out, session.FormatPlan(plan))
	return err
}
