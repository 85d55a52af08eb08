package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"protonfusion/internal/app"
	"protonfusion/internal/elements"
	"protonfusion/internal/signature"
)

var snapshotLimit int

var glyphCmd = &cobra.Command{
	Use:   "glyph [label] [code]",
	Short: "Print the glyph for a label and short code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol, tag := signature.GenerateGlyph(args[0], args[1])
		fmt.Fprintf(cmd.OutOrStdout(), "%s-%s\n", symbol, tag)
		return nil
	},
}

var elementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "List the element table in modulation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := elements.Load(cfg.Elements.Path)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tELEMENT\tMASS\tSPIN\tEN")
		for i := 0; i < table.Len(); i++ {
			p := table.Get(i)
			fmt.Fprintf(w, "%d\t%s\t%.4f\t%g\t%.2f\n", i, table.Signature(i), p.AtomicMass, p.NMRSpin, p.Electronegativity)
		}
		return w.Flush()
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List recent signal snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := app.RecentSnapshots(context.Background(), cfg, log, snapshotLimit)
		if errors.Is(err, app.ErrSnapshotsDisabled) {
			fmt.Fprintln(cmd.OutOrStdout(), "snapshots disabled")
			return nil
		}
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no snapshots recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tEMBER\tGLYPH\tMODE\tIMAGE\tDESCRIPTOR")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.EmberID, r.Glyph, r.Mode, r.Image, r.Descriptor)
		}
		return w.Flush()
	},
}

func init() {
	snapshotsCmd.Flags().IntVarP(&snapshotLimit, "limit", "n", 20, "Number of records to show")
}
