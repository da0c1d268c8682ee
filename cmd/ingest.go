package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Runs one ingestion cycle and persists the merged schedule",
		Long: `Fetches every enabled source, merges the candidates into a
de-duplicated event list, writes it to the data directory and prints
the run report as JSON.`,
		RunE: runIngestCommand,
	}
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, merged, err := a.Orchestrator.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	a.Logger.Info("schedule written",
		zap.Int("events", len(merged)),
		zap.String("dir", a.Store.Dir()))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
