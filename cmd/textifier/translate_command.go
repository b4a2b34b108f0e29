package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"textifier/internal/subtitles"
	"textifier/internal/translation"
	"textifier/internal/workflow"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		source    string
		target    string
		outputDir string
		format    string
		device    string
		beamSize  int
		maxLength int
		asJSON    bool
		quiet     bool
		skipCheck bool
	)

	cmd := &cobra.Command{
		Use:   "translate <subtitle file or folder>",
		Short: "Translate subtitle files, keeping their timing",
		Long: `Translate a subtitle file, or every subtitle file directly inside a folder.

Output is named <name>_<target>.<ext>. Files that already carry the target
suffix are skipped in folder mode. Canceled translations are not written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// PersistentPostRunE is skipped when RunE fails.
			defer ctx.close()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// An explicit pair is rejected before any preflight or model work;
			// otherwise the source comes from each document.
			if source != "" {
				if _, err := translation.CheckPair(source, firstSet(target, cfg.Translation.TargetLanguage)); err != nil {
					return err
				}
			}
			var outFormat subtitles.Format
			if format != "" {
				if outFormat, err = subtitles.ParseFormat(format); err != nil {
					return err
				}
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

			var opts *translation.Options
			if cmd.Flags().Changed("beam-size") || cmd.Flags().Changed("max-length") {
				o := translation.OptionsFrom(cfg.Translation)
				if cmd.Flags().Changed("beam-size") {
					o.BeamSize = beamSize
				}
				if cmd.Flags().Changed("max-length") {
					o.MaxLength = maxLength
				}
				opts = &o
			}

			manager, err := ctx.newManager()
			if err != nil {
				return err
			}
			progress := newProgressRenderer(cmd.ErrOrStderr(), quiet || asJSON)
			defer progress.finish()

			req := workflow.TranslationRequest{
				Source:    source,
				Target:    target,
				OutputDir: outputDir,
				Format:    outFormat,
				Options:   opts,
				Device:    pinned,
			}
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("translate: %w", err)
			}

			started := time.Now()
			var outcomes []workflow.Outcome
			if info.IsDir() {
				req.OnProgress = progress.callback(path)
				outcomes, err = manager.TranslateAll(cmd.Context(), path, req)
				if err != nil {
					return err
				}
				if len(outcomes) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No subtitle files to translate in %s\n", path)
					return nil
				}
			} else {
				req.SourcePath = path
				req.OnProgress = progress.callback(path)
				outcomes = []workflow.Outcome{manager.SubmitTranslation(cmd.Context(), req).Wait()}
			}
			progress.finish()
			ctx.notifyRun(cmd.Context(), summarize(workflow.KindTranslation, path, outcomes, time.Since(started)))
			return printOutcomes(cmd, outcomes, asJSON)
		},
	}

	cmd.Flags().StringVar(&source, "from", "", "Source language (default: document language, then config)")
	cmd.Flags().StringVar(&target, "to", "", "Target language (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: config output_dir, else beside the source)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (default: the source format)")
	cmd.Flags().StringVar(&device, "device", "", "Pin a device profile such as cpu:int8 and skip probing")
	cmd.Flags().IntVar(&beamSize, "beam-size", translation.DefaultOptions().BeamSize, "Beam width for generation")
	cmd.Flags().IntVar(&maxLength, "max-length", translation.DefaultOptions().MaxLength, "Maximum generated tokens per cue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outcomes as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip preflight checks")
	return cmd
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
