package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"soundscout/internal/ipc"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "submit <source-url>",
		Short: "Submit a source URL for acquisition and recognition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(owner, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job #%d queued for %s\n", resp.Job.ID, resp.Job.Owner)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Owner submitting the job")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var states []string
	var owner string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList(states, owner)
				if err != nil {
					return err
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Owner,
						job.State,
						job.Source,
						formatVerdict(job),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Owner", "State", "Source", "Verdict"}, rows, 0))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&states, "state", "s", nil, "Filter by job state (repeatable)")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Filter by owner")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobStatus(id)
				if err != nil {
					return err
				}
				job := resp.Job
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job #%d\n", job.ID)
				fmt.Fprintf(out, "  Owner:     %s\n", job.Owner)
				fmt.Fprintf(out, "  Source:    %s\n", job.Source)
				fmt.Fprintf(out, "  State:     %s\n", job.State)
				if job.ContentHash != "" {
					fmt.Fprintf(out, "  Hash:      %s\n", job.ContentHash)
				}
				if job.ErrorKind != "" {
					fmt.Fprintf(out, "  Error:     %s (%s)\n", job.ErrorMessage, job.ErrorKind)
				}
				if job.Result != nil {
					fmt.Fprintf(out, "  Verdict:   %s\n", formatVerdict(job))
				}
				fmt.Fprintf(out, "  Created:   %s\n", job.CreatedAt)
				if job.FinishedAt != "" {
					fmt.Fprintf(out, "  Finished:  %s\n", job.FinishedAt)
				}
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Cancel(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job #%d cancelled\n", id)
				return nil
			})
		},
	}
}
