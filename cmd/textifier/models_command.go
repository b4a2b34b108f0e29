package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"textifier/internal/models"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect installed model weights",
	}
	modelsCmd.AddCommand(newModelsListCommand(ctx))
	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed models and mark the configured ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := ctx.registry()
			if err != nil {
				return err
			}
			configured := map[models.Kind]string{
				models.KindTranscription: cfg.Transcription.Model,
				models.KindTranslation:   cfg.Translation.Model,
			}

			var rows [][]string
			for _, kind := range []models.Kind{models.KindTranscription, models.KindTranslation} {
				names, err := registry.Installed(kind)
				if err != nil {
					return err
				}
				seen := false
				for _, name := range names {
					mark := ""
					if name == configured[kind] {
						mark, seen = "configured", true
					}
					rows = append(rows, []string{string(kind), name, mark})
				}
				if !seen && strings.TrimSpace(configured[kind]) != "" {
					rows = append(rows, []string{string(kind), configured[kind], "configured, missing"})
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Models directory: %s\n", cfg.Paths.ModelsDir)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Kind", "Model", "State"}, rows, nil))
			return nil
		},
	}
}
