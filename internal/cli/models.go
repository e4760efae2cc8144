package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/models"
)

func newModelsCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage on-device translation models",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List supported languages and which models are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			installed, err := models.NewLocalManager(cfg.Models).AvailableModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			renderLanguages(cmd.OutOrStdout(), config.SupportedLanguages(), installed)
			return nil
		},
	}

	var force bool
	download := &cobra.Command{
		Use:   "download <lang>",
		Short: "Download the model for a language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := args[0]
			if !config.IsSupportedLanguage(lang) {
				return fmt.Errorf("unsupported language %q", lang)
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			manager := models.NewLocalManager(cfg.Models)
			if !force {
				installed, err := manager.IsInstalled(cmd.Context(), lang)
				if err != nil {
					return err
				}
				if installed {
					fmt.Fprintf(cmd.OutOrStdout(), "Model %s is already installed\n", lang)
					return nil
				}
			}
			if err := manager.DownloadModel(cmd.Context(), lang); err != nil {
				return fmt.Errorf("download model %s: %w", lang, err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Model %s installed\n", lang)
			return nil
		},
	}
	download.Flags().BoolVar(&force, "force", false, "download again even when installed")

	remove := &cobra.Command{
		Use:   "delete <lang>",
		Short: "Delete the model for a language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := args[0]
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if err := models.NewLocalManager(cfg.Models).DeleteModel(cmd.Context(), lang); err != nil {
				return fmt.Errorf("delete model %s: %w", lang, err)
			}
			color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "Model %s removed\n", lang)
			return nil
		},
	}

	cmd.AddCommand(list, download, remove)
	return cmd
}

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderLanguages(cmd.OutOrStdout(), config.SupportedLanguages(), nil)
			return nil
		},
	}
}
