package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/allot/internal/models"
	"github.com/fentz26/allot/internal/tui"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded allocation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run and its report",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent process decision records",
	RunE:  runAudit,
}

var (
	runsLimit int
	runsJSON  bool
)

func init() {
	runsCmd.AddCommand(runsListCmd, runsShowCmd, auditCmd)

	runsCmd.PersistentFlags().IntVar(&runsLimit, "limit", 20, "Maximum number of entries")
	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "Print as JSON")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	body, err := apiGet(fmt.Sprintf("/runs?limit=%d", runsLimit))
	if err != nil {
		return err
	}

	var runs []models.RunRecord
	if err := json.Unmarshal(body, &runs); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if runsJSON {
		return printJSON(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tALLOCATED\tCOST\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d/%d\t%v\t%s\n", r.ID, r.AllocatedTasks, r.TotalTasks, r.TotalCost,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	body, err := apiGet("/runs/" + url.PathEscape(args[0]))
	if err != nil {
		return err
	}

	var run models.RunRecord
	if err := json.Unmarshal(body, &run); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if runsJSON {
		return printJSON(run)
	}

	fmt.Printf("ID:           %s\n", run.ID)
	fmt.Printf("Request hash: %s\n", run.RequestHash)
	fmt.Printf("Created:      %s\n\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Print(tui.RenderReport(run.Report))
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	body, err := apiGet(fmt.Sprintf("/audit?limit=%d", runsLimit))
	if err != nil {
		return err
	}

	var entries []models.PDREntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if runsJSON {
		return printJSON(entries)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tRUN\tDETAILS")
	for _, e := range entries {
		run := e.RunID
		if run == "" {
			run = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Action, e.Outcome, run, e.Details)
	}
	w.Flush()
	return nil
}
