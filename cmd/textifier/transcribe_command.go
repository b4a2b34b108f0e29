package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"textifier/internal/hardware"
	"textifier/internal/language"
	"textifier/internal/preflight"
	"textifier/internal/subtitles"
	"textifier/internal/workflow"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		lang      string
		model     string
		formats   []string
		outputDir string
		device    string
		asJSON    bool
		quiet     bool
		skipCheck bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <media file or folder>",
		Short: "Transcribe media into subtitle files",
		Long: `Transcribe a media file, or every media file directly inside a folder.

Subtitles are written once per requested format, named after the media file.
Cancel with Ctrl-C: the segment in progress finishes and nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// PersistentPostRunE is skipped when RunE fails.
			defer ctx.close()

			if lang != "" && !language.SupportsTranscription(lang) {
				return fmt.Errorf("language %q is not supported for transcription (see textifier languages)", lang)
			}
			parsedFormats, err := subtitles.ParseFormats(formats)
			if err != nil {
				return err
			}
			pinned, err := parseDevice(device)
			if err != nil {
				return err
			}
			if !skipCheck {
				if err := ctx.requirePreflight(cmd); err != nil {
					return err
				}
			}

			manager, err := ctx.newManager()
			if err != nil {
				return err
			}
			progress := newProgressRenderer(cmd.ErrOrStderr(), quiet || asJSON)
			defer progress.finish()

			req := workflow.TranscriptionRequest{
				OutputDir: outputDir,
				Language:  lang,
				Model:     model,
				Formats:   parsedFormats,
				Device:    pinned,
			}
			target := args[0]
			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("transcribe: %w", err)
			}

			started := time.Now()
			var outcomes []workflow.Outcome
			if info.IsDir() {
				req.OnProgress = progress.callback(target)
				outcomes, err = manager.TranscribeAll(cmd.Context(), target, req)
				if err != nil {
					return err
				}
				if len(outcomes) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No media files found in %s\n", target)
					return nil
				}
			} else {
				req.MediaPath = target
				req.OnProgress = progress.callback(target)
				outcomes = []workflow.Outcome{manager.SubmitTranscription(cmd.Context(), req).Wait()}
			}
			progress.finish()
			ctx.notifyRun(cmd.Context(), summarize(workflow.KindTranscription, target, outcomes, time.Since(started)))
			return printOutcomes(cmd, outcomes, asJSON)
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "", "Spoken language code, or auto (default from config)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Transcription model (default from config)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Output formats: vtt, srt, txt, csv (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: config output_dir, else beside the media)")
	cmd.Flags().StringVar(&device, "device", "", "Pin a device profile such as cpu:int8 and skip probing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outcomes as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip preflight checks")
	return cmd
}

func parseDevice(value string) (*hardware.DeviceProfile, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	profile, err := hardware.ParseCandidate(value)
	if err != nil {
		return nil, fmt.Errorf("--device: %w", err)
	}
	return &profile, nil
}

// requirePreflight runs the readiness checks and fails on any required one.
func (c *commandContext) requirePreflight(cmd *cobra.Command) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	registry, err := c.registry()
	if err != nil {
		return err
	}
	failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, registry))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed (run textifier check for details):\n  %s", strings.Join(parts, "\n  "))
}
