package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/chapter-translator/internal/library"
	"github.com/MimeLyc/chapter-translator/internal/persistence"
)

func newLibraryCommand(flags *rootFlags) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "library",
		Short: "List downloaded chapters and their translation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			store, err := persistence.NewSQLiteStore(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			lib, err := library.NewScanner(cfg.Storage.NovelStorage, store).Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan library: %w", err)
			}
			if pendingOnly {
				filtered := lib.Chapters[:0]
				for _, ch := range lib.Chapters {
					if ch.Translatable {
						filtered = append(filtered, ch)
					}
				}
				lib.Chapters = filtered
			}
			renderLibrary(cmd.OutOrStdout(), lib)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "only show chapters that still need translating")
	return cmd
}
