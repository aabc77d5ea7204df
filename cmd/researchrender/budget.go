package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/researchrender/researchrender/pkg/budget"
	"github.com/researchrender/researchrender/pkg/tracker"
	"github.com/spf13/cobra"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show generation call budgets",
	}

	var service string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			statuses, err := budget.New(cfg.Budget.Policies, tr).Status(context.Background(), service)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println("No budget policies found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tPERIOD\tMAX CALLS\tUSED\tREMAINING")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
					s.Policy.Service, s.Policy.Period, s.Policy.MaxCalls, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&service, "service", "", "filter by service (steps or code)")

	cmd.AddCommand(statusCmd)
	return cmd
}
