// Tenderflow CLI — инструмент командной строки для работы с тендерами
// через HTTP API.
//
// Использование:
//
//	tenderflow [--api-url URL] [--as USER_ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	tender    Тендеры и переходы
//	tasks     Очередь задач
//	user      Справочник пользователей
//	catalog   Каталог шагов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tenderflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var actorID string
	var idemKey string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "tenderflow",
		Short:         "Tenderflow CLI — tender approval workflow",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("TENDERFLOW_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&actorID, "as", os.Getenv("TENDERFLOW_ACTOR"), "Acting user ID (X-Actor-ID)")
	rootCmd.PersistentFlags().StringVar(&idemKey, "idempotency-key", "", "Idempotency-Key for state-changing requests")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client {
		return cli.NewClient(cli.ClientConfig{
			BaseURL:        apiURL,
			ActorID:        actorID,
			IdempotencyKey: idemKey,
		})
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTenderCmd(clientFn, outputFn),
		cli.NewTasksCmd(clientFn, outputFn),
		cli.NewUserCmd(clientFn, outputFn),
		cli.NewCatalogCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
