package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/allot/internal/allocator"
	"github.com/fentz26/allot/internal/controlplane"
	"github.com/fentz26/allot/internal/models"
	"github.com/fentz26/allot/internal/tui"
)

var (
	allocateFile   string
	allocateRemote bool
	allocateJSON   bool
)

var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "Allocate resources to tasks from a request file",
	Long: `Reads an allocation request (JSON) and prints the allocation report.

By default the request is allocated in-process and not recorded. With --remote
it is sent to the daemon, which records the run in its history.`,
	Example: `  allot allocate -f request.json
  cat request.json | allot allocate -f -
  allot allocate -f request.json --remote --json`,
	RunE: runAllocate,
}

func init() {
	allocateCmd.Flags().StringVarP(&allocateFile, "file", "f", "-", "Request file (- for stdin)")
	allocateCmd.Flags().BoolVar(&allocateRemote, "remote", false, "Send the request to the daemon")
	allocateCmd.Flags().BoolVar(&allocateJSON, "json", false, "Print the report as JSON")
}

func runAllocate(cmd *cobra.Command, args []string) error {
	payload, err := readPayload(allocateFile)
	if err != nil {
		return err
	}

	var result controlplane.RunResult
	if allocateRemote {
		body, err := apiPost("/allocate", payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	} else {
		req, err := payload.ToRequest()
		if err != nil {
			return err
		}
		res, err := localService().Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		result = *res
	}

	if allocateJSON {
		return printJSON(result)
	}
	if result.RunID != "" {
		fmt.Printf("Run: %s\n\n", result.RunID)
	}
	fmt.Print(tui.RenderReport(result.Report))
	return nil
}

// readPayload decodes a request from path, or stdin when path is "-".
func readPayload(path string) (controlplane.RequestPayload, error) {
	var payload controlplane.RequestPayload

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return payload, err
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		if err == io.EOF {
			return payload, controlplane.ErrEmptyRequest
		}
		return payload, fmt.Errorf("invalid json in %s: %w", displayName(path), err)
	}
	return payload, nil
}

// localService builds an in-process service without run history.
func localService() *controlplane.Service {
	engine := allocator.NewEngine(&cfg.Engine, logger.Named("engine"))
	return controlplane.NewService(engine, nil, nil, logger.Named("service"))
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// summaryLine is the one-line form of a report used in batch output.
func summaryLine(r *models.AllocationReport) string {
	return fmt.Sprintf("%d/%d allocated, cost %v",
		r.Summary.AllocatedTasks, r.Summary.TotalTasks, r.Summary.TotalCost)
}
