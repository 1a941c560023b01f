package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/allot/internal/batch"
	"github.com/fentz26/allot/internal/controlplane"
)

var (
	batchRemote bool
	batchJSON   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>...",
	Short: "Allocate several independent requests concurrently",
	Long: `Allocates every request file as an independent job. Each job gets its own
resource pool; a failing job does not affect the others. The job name is the
file name without its extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchRemote, "remote", false, "Send the batch to the daemon")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Print results as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	jobs := make([]controlplane.BatchJobPayload, 0, len(args))
	for _, path := range args {
		payload, err := readPayload(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, controlplane.BatchJobPayload{Name: jobName(path), Request: payload})
	}

	var results []controlplane.BatchResult
	if batchRemote {
		body, err := apiPost("/allocate/batch", controlplane.BatchRequest{Jobs: jobs})
		if err != nil {
			return err
		}
		var resp controlplane.BatchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		results = resp.Results
	} else {
		var err error
		results, err = runLocalBatch(cmd, jobs)
		if err != nil {
			return err
		}
	}

	if batchJSON {
		return printJSON(controlplane.BatchResponse{Results: results})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tRESULT")
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Fprintf(w, "%s\terror: %s\n", r.Name, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", r.Name, summaryLine(r.Report))
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}

func runLocalBatch(cmd *cobra.Command, payloads []controlplane.BatchJobPayload) ([]controlplane.BatchResult, error) {
	results := make([]controlplane.BatchResult, len(payloads))
	jobs := make([]batch.Job, 0, len(payloads))
	slots := make([]int, 0, len(payloads))
	for i, p := range payloads {
		results[i].Name = p.Name
		req, err := p.Request.ToRequest()
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		jobs = append(jobs, batch.Job{Name: p.Name, Request: req})
		slots = append(slots, i)
	}

	runner := batch.New(localService(), &cfg.Batch, logger.Named("batch"))
	ran, err := runner.Run(cmd.Context(), jobs)
	if err != nil {
		return nil, err
	}
	for k, res := range ran {
		i := slots[k]
		if res.Err != nil {
			results[i].Error = res.Err.Error()
			continue
		}
		results[i].Report = res.Report
	}
	return results, nil
}

func jobName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
