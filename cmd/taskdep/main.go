// taskdep — инструмент командной строки для графов задач.
//
// Использование:
//
//	taskdep [--api-url URL] [--json] [--quiet] <command> [flags]
//
// Команды:
//
//	run FILE       Выполнить граф локально
//	plan FILE      Показать порядок выполнения
//	validate FILE  Проверить граф (структура и циклы)
//	runs           Runs на сервере API (list, show, submit)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/taskdep/internal/cli"
	"github.com/shaiso/taskdep/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var quiet bool

	rootCmd := &cobra.Command{
		Use:           "taskdep",
		Short:         "taskdep — run task graphs in dependency order",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("TASKDEP_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress logs")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	loggerFn := func() *slog.Logger {
		if quiet {
			return telemetry.Nop()
		}
		return telemetry.NewLogger(telemetry.LogConfigFromEnv(outputFn().ErrWriter()))
	}

	rootCmd.AddCommand(
		cli.NewLocalRunCmd(outputFn, loggerFn),
		cli.NewPlanCmd(outputFn),
		cli.NewValidateCmd(outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
