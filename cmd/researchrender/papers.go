package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPapersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papers",
		Short: "Inspect processed papers",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List processed papers, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			recs, err := st.records.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("No papers processed yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HASH\tFILENAME\tSTEPS\tCODE\tUPDATED")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortHash(r.ContentHash), r.Filename, yesNo(r.Steps != nil), yesNo(r.Code != nil),
					r.UpdatedAt.Format("2006-01-02T15:04:05"))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of papers to show")

	cmd.AddCommand(listCmd)
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
