package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"textifier/internal/notifications"
	"textifier/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, system dependencies and models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, registry)
			results = append(results, preflight.CheckGPUs(cmd.Context(), nil))
			if notify {
				results = append(results, checkNotifications(cmd, notifications.NewService(cfg), cfg.Notifications.NtfyTopic))
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, checkMark(r), r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Check", "Result", "Detail"}, rows, nil))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}

func checkNotifications(cmd *cobra.Command, svc notifications.Service, topic string) preflight.Result {
	const name = "Notifications"
	if topic == "" {
		return preflight.Result{Name: name, Optional: true, Detail: "ntfy topic not configured"}
	}
	if err := svc.TestNotification(cmd.Context()); err != nil {
		return preflight.Result{Name: name, Optional: true, Detail: err.Error()}
	}
	return preflight.Result{Name: name, Passed: true, Optional: true, Detail: "test notification sent to " + topic}
}

func checkMark(r preflight.Result) string {
	switch {
	case r.Passed:
		return "ok"
	case r.Optional:
		return "warn"
	default:
		return "FAIL"
	}
}
