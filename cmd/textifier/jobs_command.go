package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"textifier/internal/history"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and maintain the job history",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsStatsCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	return jobsCmd
}

func (c *commandContext) requireHistory() (*history.Store, error) {
	store, err := c.historyStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("job history is disabled (history.enabled = false)")
	}
	return store, nil
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses []string
		kinds    []string
		limit    int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			opts := history.ListOptions{Limit: limit}
			for _, raw := range statuses {
				status, ok := history.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				opts.Statuses = append(opts.Statuses, status)
			}
			for _, raw := range kinds {
				opts.Kinds = append(opts.Kinds, history.Kind(strings.ToLower(strings.TrimSpace(raw))))
			}
			entries, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortJobID(e.ID),
					string(e.Kind),
					filepath.Base(e.Source),
					string(e.Status),
					e.Device,
					strconv.Itoa(e.Cues),
					e.CreatedAt.Local().Format(time.DateTime),
					formatSeconds(e.Duration()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"ID", "Kind", "Source", "Status", "Device", "Cues", "Started", "Time"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (running, succeeded, canceled, failed, interrupted)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Filter by kind (transcription, translation, save)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("job %s: %w", args[0], err)
			}
			rows := [][]string{
				{"ID", entry.ID},
				{"Kind", string(entry.Kind)},
				{"Source", entry.Source},
				{"Status", string(entry.Status)},
				{"Device", entry.Device},
				{"Cues", strconv.Itoa(entry.Cues)},
				{"Started", entry.CreatedAt.Local().Format(time.DateTime)},
				{"Duration", formatSeconds(entry.Duration())},
				{"Outputs", strings.Join(entry.Outputs, "\n")},
			}
			if entry.ErrorMessage != "" {
				rows = append(rows, []string{"Error", fmt.Sprintf("[%s] %s", entry.ErrorKind, entry.ErrorMessage)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newJobsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stats))
			for _, status := range history.AllStatuses() {
				rows = append(rows, []string{string(status), strconv.Itoa(stats[status])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs from the history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			removed, err := store.Clear(cmd.Context(), all)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Also remove running and interrupted entries")
	return cmd
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
