package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

func newReplyCmd(a *app) *cobra.Command {
	var (
		profilePath string
		historyPath string
		selfUserID  string
	)
	cmd := &cobra.Command{
		Use:   "reply [message]",
		Short: "Answer a message the way the profiled person would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("message is empty")
			}
			profile, err := persona.LoadProfile(profilePath)
			if err != nil {
				return err
			}
			var history []persona.Message
			if historyPath != "" {
				history, err = persona.LoadMessages(cmd.Context(), historyPath, persona.HistoryOptions{SelfUserID: selfUserID})
				if err != nil {
					return err
				}
			}

			gen, err := a.generator()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), gen.GenerateReply(cmd.Context(), message, history, profile))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&profilePath, "profile", "", "Profile written by train.")
	f.StringVar(&historyPath, "history", "", "Optional recent chat history used as context for the remote model.")
	f.StringVar(&selfUserID, "self-user-id", "user", "userId that marks messages written by you in app exports.")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
