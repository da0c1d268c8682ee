package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newForecastCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Prints the shutdown forecast for the persisted schedule",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := a.Store.ReadSchedule()
			if err != nil {
				return fmt.Errorf("read schedule: %w", err)
			}

			report := a.Forecast.Forecast(sched.Items, days, a.Clock.Now())
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encode forecast: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "forecast window in days")
	return cmd
}
