package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"textifier/internal/language"
)

func newLanguagesCommand() *cobra.Command {
	var translation bool

	cmd := &cobra.Command{
		Use:         "languages",
		Short:       "List supported transcription or translation languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			title := "Transcription languages (auto detection is the default)"
			list := language.TranscriptionLanguages()
			if translation {
				title = "Translation languages"
				list = language.TranslationLanguages()
			}
			rows := make([][]string, 0, len(list))
			for _, lang := range list {
				rows = append(rows, []string{lang.Code, lang.Name, language.NativeName(lang.Code)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(title, []string{"Code", "Language", "Native"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&translation, "translation", false, "List translation languages instead")
	return cmd
}
