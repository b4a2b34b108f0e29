package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"textifier/internal/hardware"
	"textifier/internal/preflight"
	"textifier/internal/workflow"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Show device candidates and detected GPUs",
		Long: `Show the configured device candidates in fallback order and the GPUs the
NVIDIA driver reports. With --probe, each candidate is tried with the probe
model exactly as a job would, and the selected profile is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			candidates, err := hardware.ParseCandidates(cfg.Hardware.Candidates)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			gpus := preflight.CheckGPUs(cmd.Context(), nil)
			fmt.Fprintf(out, "GPUs: %s\n\n", gpus.Detail)

			attempts := map[hardware.DeviceProfile]error{}
			var selected *hardware.DeviceProfile
			if probe {
				registry, err := ctx.registry()
				if err != nil {
					return err
				}
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				m := ctx.metricsRegistry()
				resolver := hardware.NewResolver(hardware.NewModelProber(registry.ProbeLoader()), hardware.Options{
					Candidates: candidates,
					Logger:     logger,
					Locks:      workflow.NewDeviceLocks(cfg),
					OnAttempt: func(a hardware.Attempt) {
						attempts[a.Profile] = a.Err
						m.DeviceProbe(a.Profile.String(), a.Err == nil)
					},
				})
				profile, err := resolver.Resolve(cmd.Context())
				if err == nil {
					selected = &profile
				}
			}

			rows := make([][]string, 0, len(candidates))
			for i, c := range candidates {
				result := "-"
				if probe {
					err, tried := attempts[c]
					switch {
					case !tried:
						result = "not tried"
					case err != nil:
						result = "failed: " + err.Error()
					case selected != nil && *selected == c:
						result = "selected"
					default:
						result = "ok"
					}
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), string(c.Backend), string(c.Precision), result})
			}
			fmt.Fprintln(out, renderTable("Device candidates", []string{"#", "Backend", "Precision", "Probe"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
			if probe && selected == nil {
				return fmt.Errorf("no usable device among %d candidates", len(candidates))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "Load the probe model on each candidate")
	return cmd
}
