package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/engine"
)

// NewRunsCmd создаёт группу команд для runs на сервере API.
func NewRunsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage runs on the API server",
	}

	cmd.AddCommand(
		newRunsListCmd(clientFn, outputFn),
		newRunsShowCmd(clientFn, outputFn),
		newRunsSubmitCmd(clientFn, outputFn),
	)

	return cmd
}

var runHeaders = []string{"ID", "GRAPH", "ROOT", "STATUS", "TASKS", "CREATED"}

func runRow(r RunResponse) []string {
	return []string{r.ID, r.Graph, r.Root, r.Status, strconv.Itoa(len(r.Order)), r.CreatedAt}
}

func newRunsListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var graph string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(cmd.Context(), ListRunsOpts{
				Graph:  graph,
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			out.Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&graph, "graph", "", "Filter by graph name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunsShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details and its execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printRun(out, run)
			return nil
		},
	}
}

func newRunsSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var root string
	var inputs []string
	var dryRun bool
	var async bool

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Execute a graph file on the API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			spec, err := engine.ParseFile(args[0])
			if err != nil {
				return err
			}

			in, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			req := SubmitRunRequest{
				Spec:   spec,
				Root:   root,
				Inputs: in,
				DryRun: dryRun,
			}

			if async {
				msgID, err := client.EnqueueRun(cmd.Context(), req)
				if err != nil {
					return err
				}
				out.Successf("Run queued: message %s", msgID)
				return nil
			}

			run, err := client.SubmitRun(cmd.Context(), req)
			if err != nil {
				return err
			}

			printRun(out, run)
			if run.Status == string(domain.RunStatusFailed) {
				return fmt.Errorf("%w: %s", ErrRunFailed, run.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Root task ID (default: the single target task)")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the order without running actions")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the run for a worker instead of waiting")

	return cmd
}

// printRun выводит run и его execution record.
func printRun(out *Output, run *RunResponse) {
	if out.jsonMode {
		out.JSON(run)
		return
	}

	out.Table(runHeaders, [][]string{runRow(*run)})
	if len(run.Order) > 0 {
		out.Successf("Order: %s", strings.Join(run.Order, " -> "))
	}
	if run.Error != "" {
		out.Error(run.Error)
	}
}
