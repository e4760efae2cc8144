package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/chapter-translator/internal/config"
)

func newSettingsCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the translation settings",
	}

	openStore := func() (*config.TranslationSettingsStore, error) {
		cfg, err := flags.loadConfig()
		if err != nil {
			return nil, err
		}
		return config.NewTranslationSettingsStore(cfg.Storage.SettingsFile, cfg.Translate.DefaultTargetLanguage.String())
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the target language",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				settings, err := store.GetTranslationSettings()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "targetLang: %s\n", settings.TargetLang)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <target-lang>",
			Short: "Change the target language",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := openStore()
				if err != nil {
					return err
				}
				saved, err := store.SetTranslationSettings(config.TranslationSettings{TargetLang: args[0]})
				if err != nil {
					return fmt.Errorf("save settings: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "targetLang: %s\n", saved.TargetLang)
				return nil
			},
		},
	)
	return cmd
}
