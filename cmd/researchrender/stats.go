package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/researchrender/researchrender/pkg/tracker"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show generation call statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := context.Background()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

			if recent > 0 {
				events, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "TIME\tSERVICE\tSTAGE\tHASH\tATTEMPT\tOUTCOME\tLATENCY MS")
				for _, e := range events {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
						e.CreatedAt.Format("2006-01-02T15:04:05"), e.Service, e.Stage,
						shortHash(e.ContentHash), e.Attempt, e.Outcome, e.LatencyMs)
				}
				return w.Flush()
			}

			summary, err := tr.Summary(ctx)
			if err != nil {
				return err
			}
			if len(summary) == 0 {
				fmt.Println("No generation calls recorded.")
				return nil
			}
			fmt.Fprintln(w, "SERVICE\tSTAGE\tOUTCOME\tCALLS\tAVG LATENCY MS")
			for _, s := range summary {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", s.Service, s.Stage, s.Outcome, s.Calls, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 0, "show the N most recent calls instead of the summary")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
