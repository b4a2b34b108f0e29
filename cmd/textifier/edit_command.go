package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"textifier/internal/subtitles"
	"textifier/internal/workflow"
)

func newEditCommand(ctx *commandContext) *cobra.Command {
	var (
		replace []string
		retime  []string
		remove  []int
		insert  []string
		shift   time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "edit <subtitle file>",
		Short: "Apply edits and save them as a new version",
		Long: `Apply edits to a subtitle file and save the result beside it as
<name>_editNN.<ext>. The original file is never modified.

Cue numbers are 1-based and refer to the document after the previous edits. Edits apply in this
order: replace, retime, delete, insert, shift.`,
		Example: `  textifier edit talk.vtt --replace "2=Hello there"
  textifier edit talk.srt --retime "3=00:00:04.000,00:00:06.500" --delete 5
  textifier edit talk.vtt --insert "00:01:00.000,00:01:02.000,[music]" --shift 250ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// PersistentPostRunE is skipped when RunE fails.
			defer ctx.close()

			original := args[0]
			doc, err := subtitles.Load(original)
			if err != nil {
				return err
			}
			edited, changes, err := applyEdits(doc, replace, retime, remove, insert, shift)
			if err != nil {
				return err
			}
			if changes == 0 {
				return fmt.Errorf("no edits requested")
			}

			manager, err := ctx.newManager()
			if err != nil {
				return err
			}
			outcome := manager.SubmitSave(cmd.Context(), workflow.SaveRequest{Original: original, Document: edited}).Wait()
			return printOutcomes(cmd, []workflow.Outcome{outcome}, asJSON)
		},
	}

	cmd.Flags().StringArrayVar(&replace, "replace", nil, "Replace cue text: N=text")
	cmd.Flags().StringArrayVar(&retime, "retime", nil, "Retime a cue: N=start,end")
	cmd.Flags().IntSliceVar(&remove, "delete", nil, "Delete cues by number")
	cmd.Flags().StringArrayVar(&insert, "insert", nil, "Insert a cue: start,end,text")
	cmd.Flags().DurationVar(&shift, "shift", 0, "Shift every cue by a duration such as 1.5s or -200ms")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

func applyEdits(doc *subtitles.Document, replace, retime []string, remove []int, insert []string, shift time.Duration) (*subtitles.Document, int, error) {
	changes := 0
	for _, spec := range replace {
		i, text, err := parseIndexed(spec, doc.Len())
		if err != nil {
			return nil, 0, fmt.Errorf("--replace %q: %w", spec, err)
		}
		if doc, err = doc.ReplaceText(i, text); err != nil {
			return nil, 0, fmt.Errorf("--replace %q: %w", spec, err)
		}
		changes++
	}
	for _, spec := range retime {
		i, value, err := parseIndexed(spec, doc.Len())
		if err != nil {
			return nil, 0, fmt.Errorf("--retime %q: %w", spec, err)
		}
		start, end, err := parseRange(value)
		if err != nil {
			return nil, 0, fmt.Errorf("--retime %q: %w", spec, err)
		}
		if doc, err = doc.Retime(i, start, end); err != nil {
			return nil, 0, fmt.Errorf("--retime %q: %w", spec, err)
		}
		changes++
	}
	// Delete from the highest number down so earlier numbers stay valid.
	ordered := slices.Clone(remove)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)
	slices.Reverse(ordered)
	for _, n := range ordered {
		var err error
		if doc, err = doc.Delete(n - 1); err != nil {
			return nil, 0, fmt.Errorf("--delete %d: %w", n, err)
		}
		changes++
	}
	for _, spec := range insert {
		parts := strings.SplitN(spec, ",", 3)
		if len(parts) != 3 {
			return nil, 0, fmt.Errorf("--insert %q: want start,end,text", spec)
		}
		start, end, err := parseRange(parts[0] + "," + parts[1])
		if err != nil {
			return nil, 0, fmt.Errorf("--insert %q: %w", spec, err)
		}
		if doc, err = doc.Insert(subtitles.NewCue(start, end, parts[2])); err != nil {
			return nil, 0, fmt.Errorf("--insert %q: %w", spec, err)
		}
		changes++
	}
	if shift != 0 {
		var err error
		if doc, err = doc.Shift(shift); err != nil {
			return nil, 0, fmt.Errorf("--shift %s: %w", shift, err)
		}
		changes++
	}
	return doc, changes, nil
}

// parseIndexed splits "N=value" and converts N to a 0-based index.
func parseIndexed(spec string, count int) (int, string, error) {
	number, value, ok := strings.Cut(spec, "=")
	if !ok {
		return 0, "", fmt.Errorf("want N=value")
	}
	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return 0, "", fmt.Errorf("cue number: %w", err)
	}
	if n < 1 || n > count {
		return 0, "", fmt.Errorf("cue %d out of range 1..%d", n, count)
	}
	return n - 1, value, nil
}

func parseRange(value string) (time.Duration, time.Duration, error) {
	startRaw, endRaw, ok := strings.Cut(value, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want start,end")
	}
	start, err := subtitles.ParseTimestamp(strings.TrimSpace(startRaw))
	if err != nil {
		return 0, 0, err
	}
	end, err := subtitles.ParseTimestamp(strings.TrimSpace(endRaw))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
