package command

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/joao-brasil/collectflow/internal/health"
)

var errUnhealthy = errors.New("gateway is unhealthy")

var checkTimeout time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the readiness checks once and print the JSON report",
	Long: `Check leases one connection from the pool, pings it, pings Redis when
configured and prints the readiness report. The exit code is non-zero when
any component is unhealthy.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		report := a.checker.Check(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if report.Status == health.StatusUnhealthy {
			return errUnhealthy
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 15*time.Second, "overall timeout of the check")
	rootCmd.AddCommand(checkCmd)
}
