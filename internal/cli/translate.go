package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/chapter-translator/internal/persistence"
	"github.com/MimeLyc/chapter-translator/internal/service"
)

type translateFlags struct {
	pluginID  string
	novelID   int64
	name      string
	novelName string
}

func newTranslateCommand(flags *rootFlags) *cobra.Command {
	tf := &translateFlags{}

	cmd := &cobra.Command{
		Use:   "translate <chapter-id>",
		Short: "Translate one chapter in the foreground",
		Long: `Translate one downloaded chapter and print each progress step.

The chapter must be registered, either through the HTTP API or by passing
--name, which registers or renames it before translating.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chapterID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || chapterID <= 0 {
				return fmt.Errorf("invalid chapter id %q", args[0])
			}
			if strings.TrimSpace(tf.pluginID) == "" {
				return fmt.Errorf("--plugin is required")
			}

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if tf.name != "" {
				err := a.store.UpsertChapter(ctx, persistence.ChapterInfo{
					ChapterID: chapterID,
					NovelID:   tf.novelID,
					PluginID:  tf.pluginID,
					Name:      tf.name,
				})
				if err != nil {
					return fmt.Errorf("register chapter: %w", err)
				}
			}

			in := service.ChapterInput{
				ChapterID:   chapterID,
				NovelID:     tf.novelID,
				PluginID:    tf.pluginID,
				ChapterName: tf.name,
				NovelName:   tf.novelName,
			}
			err = service.SafeExecute(func() error {
				return a.translator.TranslateChapter(ctx, in, progressPrinter{w: cmd.OutOrStdout()})
			})
			if err != nil {
				service.NewDefaultErrorHandler().Handle(err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&tf.pluginID, "plugin", "", "source plugin id")
	cmd.Flags().Int64Var(&tf.novelID, "novel", 0, "novel id")
	cmd.Flags().StringVar(&tf.name, "name", "", "chapter name; registers the chapter when set")
	cmd.Flags().StringVar(&tf.novelName, "novel-name", "", "novel name, for logs only")
	return cmd
}
