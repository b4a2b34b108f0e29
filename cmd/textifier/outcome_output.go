package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"textifier/internal/workflow"
)

type outcomeView struct {
	JobID    string   `json:"job_id,omitempty"`
	Kind     string   `json:"kind"`
	Source   string   `json:"source"`
	Status   string   `json:"status"`
	Device   string   `json:"device,omitempty"`
	Cues     int      `json:"cues"`
	Silent   int      `json:"silent,omitempty"`
	Skipped  int      `json:"skipped,omitempty"`
	Outputs  []string `json:"outputs,omitempty"`
	Error    string   `json:"error,omitempty"`
	Category string   `json:"error_kind,omitempty"`
	Seconds  float64  `json:"seconds"`
}

func viewOutcome(o workflow.Outcome) outcomeView {
	v := outcomeView{
		JobID:    o.JobID,
		Kind:     string(o.Kind),
		Source:   o.Source,
		Status:   string(o.Status),
		Cues:     o.Cues,
		Silent:   o.Silent,
		Skipped:  o.Skipped,
		Outputs:  o.Outputs,
		Category: string(o.Category),
		Seconds:  o.Duration.Round(time.Millisecond).Seconds(),
	}
	if o.Device.Backend != "" {
		v.Device = o.Device.String()
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}

// printOutcomes renders outcomes and returns an error when any item failed.
func printOutcomes(cmd *cobra.Command, outcomes []workflow.Outcome, asJSON bool) error {
	if asJSON {
		views := make([]outcomeView, 0, len(outcomes))
		for _, o := range outcomes {
			views = append(views, viewOutcome(o))
		}
		if err := writeJSON(cmd, views); err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(outcomes))
		for _, o := range outcomes {
			v := viewOutcome(o)
			detail := strings.Join(v.Outputs, "\n")
			if v.Error != "" {
				detail = fmt.Sprintf("[%s] %s", v.Category, v.Error)
			}
			rows = append(rows, []string{
				filepath.Base(v.Source),
				v.Status,
				v.Device,
				strconv.Itoa(v.Cues),
				formatSeconds(o.Duration),
				detail,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Source", "Status", "Device", "Cues", "Time", "Result"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
	}
	return summarizeFailures(outcomes)
}

func summarizeFailures(outcomes []workflow.Outcome) error {
	failed, skipped := 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case workflow.StatusFailed:
			failed++
		case workflow.StatusSkipped:
			skipped++
		}
	}
	switch {
	case failed == 0 && skipped == 0:
		return nil
	case len(outcomes) == 1:
		return outcomes[0].Err
	default:
		return fmt.Errorf("%d of %d items failed, %d skipped", failed, len(outcomes), skipped)
	}
}

func formatSeconds(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}
