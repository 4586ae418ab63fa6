package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"adb-host-go/pkg/adb"
	"adb-host-go/pkg/history"
)

func newTrackDevicesCommand(a *app) *cobra.Command {
	var record, changes bool
	cmd := &cobra.Command{
		Use:   "track-devices",
		Short: "Print the device list every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var db *history.DB
			var session string
			if record {
				var err error
				db, err = history.Open(a.cfg.History.Dir)
				if err != nil {
					return err
				}
				defer db.Close()
				session, err = db.BeginSession(ctx, a.client.Address())
				if err != nil {
					return err
				}
				a.logger.Info("recording device history", "db", db.Path(), "session", session)
			}

			stream, err := a.client.TrackDevices(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Live list of devices attached")
			var prev []adb.Device
			for devices, err := range stream.All() {
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				diff := adb.Diff(prev, devices)
				prev = devices
				if changes {
					printChanges(out, diff)
				} else {
					for _, d := range devices {
						fmt.Fprintln(out, d)
					}
				}
				if db != nil {
					if err := db.RecordSnapshot(ctx, session, devices); err != nil {
						return err
					}
					if err := db.RecordChanges(ctx, session, diff); err != nil {
						return err
					}
				}
			}
			a.logger.Info("server closed the tracking connection")
			return nil
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "record snapshots and changes in the history database")
	cmd.Flags().BoolVar(&changes, "changes", false, "print only added, changed and removed devices")
	return cmd
}

func printChanges(out io.Writer, cs adb.ChangeSet) {
	for _, d := range cs.Added {
		fmt.Fprintf(out, "+ %s\n", d)
	}
	for _, d := range cs.Changed {
		fmt.Fprintf(out, "~ %s\n", d)
	}
	for _, d := range cs.Removed {
		fmt.Fprintf(out, "- %s\n", d)
	}
}
