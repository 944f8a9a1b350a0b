package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		inPath     string
		outPath    string
		selfUserID string
		arrayField string
		dedupe     bool
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Build a personality profile from a chat history file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("missing --in")
			}
			msgs, err := persona.LoadMessages(cmd.Context(), inPath, persona.HistoryOptions{
				ArrayField: arrayField,
				SelfUserID: selfUserID,
			})
			if err != nil {
				return err
			}

			usable := countUsable(msgs)
			if usable < a.cfg.MinMessages {
				if !force {
					return fmt.Errorf("train: %w: have %d, need %d (use --force to train anyway)", persona.ErrInsufficientHistory, usable, a.cfg.MinMessages)
				}
				a.logger.Warn("train_short_history", "usable", usable, "min", a.cfg.MinMessages)
			}

			profile := persona.BuildProfileWithOptions(msgs, persona.ProfileOptions{
				HowWeMet:       persona.HowWeMetPolicy(a.cfg.HowWeMet),
				DedupeMemories: dedupe,
			})
			a.logger.Info("profile_trained",
				"in", inPath,
				"messages", len(msgs),
				"usable", usable,
				"style", string(profile.CommunicationStyle),
				"tone", string(profile.EmotionalTone),
				"topics", len(profile.Topics),
				"memories", len(profile.Memories),
			)

			if outPath == "" || outPath == "-" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(profile)
			}
			if err := persona.SaveProfile(outPath, profile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&inPath, "in", "", "Chat history file (.json array/object or .jsonl).")
	f.StringVar(&outPath, "out", "", "Profile output path (.json or .yaml); stdout when empty.")
	f.StringVar(&selfUserID, "self-user-id", "user", "userId that marks messages written by you in app exports.")
	f.StringVar(&arrayField, "array-field", "messages", "Field holding the message array when the file is a JSON object.")
	f.BoolVar(&dedupe, "dedupe-memories", false, "Record a message at most once even when it matches several memory triggers.")
	f.BoolVar(&force, "force", false, "Train even when the history is shorter than train.min_messages.")
	f.String("how-we-met", "first", "Which matching message becomes how_we_met: first|last.")
	f.Int("min-messages", persona.MinTrainingMessages, "Minimum usable messages required to train.")
	_ = a.v.BindPFlag("train.how_we_met", f.Lookup("how-we-met"))
	_ = a.v.BindPFlag("train.min_messages", f.Lookup("min-messages"))

	return cmd
}

func countUsable(msgs []persona.Message) int {
	n := 0
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) != "" {
			n++
		}
	}
	return n
}
