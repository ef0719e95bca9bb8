package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"soundscout/internal/ipc"
)

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	playlistCmd := &cobra.Command{
		Use:   "playlist",
		Short: "Manage owner playlists",
	}

	playlistCmd.AddCommand(newPlaylistAddCommand(ctx))
	playlistCmd.AddCommand(newPlaylistRemoveCommand(ctx))
	playlistCmd.AddCommand(newPlaylistShowCommand(ctx))
	playlistCmd.AddCommand(newPlaylistListCommand(ctx))
	return playlistCmd
}

func newPlaylistAddCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "add <playlist> <content-hash>",
		Short: "Append a stored track to a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PlaylistAppend(owner, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added to %s at position %d\n", args[0], resp.Entry.Position)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Playlist owner")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newPlaylistRemoveCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "remove <playlist> <position>",
		Short: "Remove the entry at a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 0 {
				return fmt.Errorf("invalid position %q", args[1])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.PlaylistRemove(owner, args[0], position); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed position %d from %s\n", position, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Playlist owner")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newPlaylistShowCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "show <playlist>",
		Short: "List a playlist's tracks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PlaylistList(owner, args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					track := entry.Title
					if entry.Artist != "" {
						track = fmt.Sprintf("%s - %s", entry.Artist, entry.Title)
					}
					rows = append(rows, []string{
						strconv.Itoa(entry.Position),
						track,
						entry.ContentHash,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Pos", "Track", "Hash"}, rows, 0))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Playlist owner")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newPlaylistListCommand(ctx *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Playlists(owner)
				if err != nil {
					return err
				}
				if len(resp.Playlists) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No playlists found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Playlists))
				for _, summary := range resp.Playlists {
					rows = append(rows, []string{
						summary.Name,
						strconv.Itoa(summary.TrackCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Playlist", "Tracks"}, rows, 1))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Playlist owner")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
