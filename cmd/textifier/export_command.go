package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"textifier/internal/fileutil"
	"textifier/internal/subtitles"
)

func newExportCommand() *cobra.Command {
	var (
		format       string
		output       string
		chunkSize    int
		noTimestamps bool
	)

	cmd := &cobra.Command{
		Use:   "export <subtitle file>",
		Short: "Convert a subtitle file into prose or a tutorial layout",
		Long: `Convert a subtitle file in any supported format into readable text.

  plain     the whole transcript as one paragraph
  tutorial  blocks of --chunk-size sentences with image placeholders
  html      the tutorial layout as an HTML article

Output defaults to <name>_<format>.txt (or .html) beside the input. Use
--output - to print to stdout.`,
		Example: `  textifier export talk.vtt
  textifier export talk.srt --format tutorial --chunk-size 5
  textifier export talk.vtt --format html --output tutorial.html`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			prose, err := subtitles.ParseProseFormat(format)
			if err != nil {
				return err
			}
			doc, err := subtitles.Load(args[0])
			if err != nil {
				return err
			}
			data, err := subtitles.RenderProse(doc, subtitles.ProseOptions{
				Format:         prose,
				ChunkSize:      chunkSize,
				OmitTimestamps: noTimestamps,
			})
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = subtitles.ProsePath(args[0], prose)
			}
			if err := fileutil.WriteAtomic(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d cues to %s\n", doc.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(subtitles.ProsePlain), "Export format: plain, tutorial or html")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, or - for stdout")
	cmd.Flags().IntVarP(&chunkSize, "chunk-size", "n", subtitles.DefaultChunkSize, "Sentences per block in tutorial and html output")
	cmd.Flags().BoolVar(&noTimestamps, "no-timestamps", false, "Leave approximate times out of tutorial placeholders")
	return cmd
}
