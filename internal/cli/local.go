package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/steps"
)

// NewLocalRunCmd создаёт команду локального выполнения графа из файла.
func NewLocalRunCmd(outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var root string
	var inputs []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Execute a graph file locally",
		Long: "Execute the tasks of a graph file in dependency order (post-order DFS).\n" +
			"Prints the execution record: tasks in completion order, root last.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := engine.ParseFile(args[0])
			if err != nil {
				return err
			}

			in, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			orch := orchestrator.New(orchestrator.Config{
				Registry: steps.DefaultRegistry(),
				Env:      engine.ProcessEnv(),
				Logger:   loggerFn(),
			})

			run, err := orch.Run(cmd.Context(), orchestrator.RunRequest{
				Spec:   spec,
				Root:   root,
				Inputs: in,
				DryRun: dryRun,
			})
			if run == nil {
				return err
			}

			out.Order(run.Order, run)
			if err != nil {
				if len(run.Order) > 0 {
					out.Error(fmt.Sprintf("completed before failure: %s", strings.Join(run.Order, ", ")))
				}
				return err
			}

			out.Successf("Run %s: %d tasks in %s", run.Status, len(run.Order), run.Duration())
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Root task ID (default: the single target task)")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the order without running actions")

	return cmd
}

// NewPlanCmd создаёт команду вывода порядка выполнения без запуска.
func NewPlanCmd(outputFn func() *Output) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Print the execution order of a graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			spec, err := engine.ParseFile(args[0])
			if err != nil {
				return err
			}

			plan, err := orchestrator.New(orchestrator.Config{
				Registry: steps.DefaultRegistry(),
			}).Plan(spec, root)
			if err != nil {
				return err
			}

			out.Order(plan.Order, plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Root task ID (default: the single target task)")

	return cmd
}

// NewValidateCmd создаёт команду проверки файла графа.
//
// Помимо структуры проверяет граф на циклы от всех задач.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a graph file and check it for cycles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if err := validateFile(args[0]); err != nil {
				return err
			}

			out.Successf("%s is valid", args[0])
			return nil
		},
	}
}

// validateFile парсит граф и обходит его от каждой задачи одним обходом,
// так что находится и цикл, не достижимый из целевых задач.
func validateFile(path string) error {
	spec, err := engine.ParseFile(path)
	if err != nil {
		return err
	}

	graph, err := engine.BuildGraph(spec, nil)
	if err != nil {
		return err
	}

	roots := make([]*engine.Task, 0, graph.Size())
	for _, id := range graph.IDs() {
		roots = append(roots, graph.Task(id))
	}

	_, err = engine.PlanAll(roots...)
	return err
}

// parseInputs разбирает KEY=VALUE пары.
func parseInputs(kvs []string) (map[string]any, error) {
	if len(kvs) == 0 {
		return nil, nil
	}

	inputs := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		inputs[key] = value
	}
	return inputs, nil
}
