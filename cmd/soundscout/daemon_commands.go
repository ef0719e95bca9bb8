package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"soundscout/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				running := "stopped"
				if status.Running {
					running = fmt.Sprintf("running (pid %d)", status.PID)
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", running, colorize, status.Running))
				fmt.Fprintln(out, renderStatusLine("Database", status.DatabasePath, colorize, true))
				fmt.Fprintln(out, renderStatusLine("Socket", status.SocketPath, colorize, true))
				fmt.Fprintln(out, renderStatusLine("Queued", strconv.Itoa(status.Scheduler.Queued), colorize, true))
				fmt.Fprintln(out, renderStatusLine("Inflight", strconv.Itoa(status.Scheduler.Inflight), colorize, true))
				fmt.Fprintln(out, renderStatusLine("Store", fmt.Sprintf("%d items, %s of %s",
					status.Store.Items,
					formatBytes(status.Store.TotalBytes),
					formatBytes(status.Store.CapacityBytes)), colorize, true))

				if len(status.JobCounts) > 0 {
					states := make([]string, 0, len(status.JobCounts))
					for state := range status.JobCounts {
						states = append(states, state)
					}
					sort.Strings(states)
					for _, state := range states {
						fmt.Fprintln(out, renderStatusLine(titleCaser.String(state),
							strconv.Itoa(status.JobCounts[state]), colorize, state != "failed"))
					}
				}
				return nil
			})
		},
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Resume daemon processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop daemon processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
				return nil
			})
		},
	}
}

func newStoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "store",
		Short: "Show content store usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StoreStats()
				if err != nil {
					return err
				}
				rows := [][]string{{
					strconv.Itoa(resp.Stats.Items),
					formatBytes(resp.Stats.TotalBytes),
					formatBytes(resp.Stats.CapacityBytes),
				}}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Items", "Used", "Capacity"}, rows, 0, 1, 2))
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
}
