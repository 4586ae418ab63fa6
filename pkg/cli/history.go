package cli

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"adb-host-go/pkg/history"
)

func newHistoryCommand(a *app) *cobra.Command {
	var serial string
	var limit int
	var last bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show device events recorded by track-devices --record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := history.Open(a.cfg.History.Dir)
			if err != nil {
				return err
			}
			defer db.Close()

			if last {
				return printLastSnapshot(cmd, db)
			}

			events, err := db.Events(cmd.Context(), serial, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No device events recorded.")
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Time", "Serial", "Event", "State"})
			table.SetBorder(false)
			for _, e := range events {
				table.Append([]string{e.At.Local().Format(time.DateTime), e.Serial, string(e.Type), string(e.State)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&serial, "serial", "s", "", "only show events for this device")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of events")
	cmd.Flags().BoolVar(&last, "last", false, "print the most recently recorded device list instead of events")
	return cmd
}

func printLastSnapshot(cmd *cobra.Command, db *history.DB) error {
	devices, err := db.LastSnapshot(cmd.Context(), "")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if devices == nil {
		fmt.Fprintln(out, "No device snapshots recorded.")
		return nil
	}
	fmt.Fprintln(out, "Last recorded list of devices attached")
	for _, d := range devices {
		fmt.Fprintln(out, d)
	}
	return nil
}
