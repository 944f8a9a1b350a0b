package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

func newMemoriesCmd(a *app) *cobra.Command {
	var (
		profilePath    string
		outDir         string
		indexPath      string
		maxBytes       int
		overwrite      bool
		chronological  bool
		noRelationship bool
	)
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "Render a profile's memories as markdown shards plus a JSONL index",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := persona.LoadProfile(profilePath)
			if err != nil {
				return err
			}
			index, err := persona.WriteMemoryBook(profile, persona.MemoryBookOptions{
				OutDir:              outDir,
				MaxBytes:            maxBytes,
				Overwrite:           overwrite,
				Chronological:       chronological,
				IncludeRelationship: !noRelationship,
			})
			if err != nil {
				return err
			}
			if indexPath == "" {
				indexPath = filepath.Join(outDir, "memory_index.jsonl")
			}
			if err := persona.WriteMemoryIndex(indexPath, index, overwrite); err != nil {
				return err
			}
			a.logger.Info("memory_book_written", "out", outDir, "memories", len(index), "index", indexPath)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d memories to %s\n", len(index), outDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&profilePath, "profile", "", "Profile written by train.")
	f.StringVar(&outDir, "out", "memory_book", "Output directory for markdown shards.")
	f.StringVar(&indexPath, "index", "", "Index path (default: <out>/memory_index.jsonl).")
	f.IntVar(&maxBytes, "max-bytes", 64*1024, "Approximate maximum bytes per shard.")
	f.BoolVar(&overwrite, "overwrite", false, "Overwrite existing shards and index.")
	f.BoolVar(&chronological, "chronological", false, "Order by timestamp instead of importance.")
	f.BoolVar(&noRelationship, "no-relationship", false, "Skip the relationship section.")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
