package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

func newProactiveCmd(a *app) *cobra.Command {
	var (
		profilePath string
		every       time.Duration
		count       int
		hour        int
	)
	cmd := &cobra.Command{
		Use:   "proactive",
		Short: "Write an unprompted check-in message, once or on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hour > 23 {
				return errors.New("--hour must be within 0..23")
			}
			profile, err := persona.LoadProfile(profilePath)
			if err != nil {
				return err
			}
			gen, err := a.generator()
			if err != nil {
				return err
			}

			clock := a.clock
			if hour >= 0 {
				now := clock.Now()
				clock = persona.FixedClock(time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location()))
			}

			emitted := 0
			emit := func() {
				fmt.Fprintln(cmd.OutOrStdout(), gen.GenerateProactiveMessage(profile, clock.Now()))
				emitted++
			}
			emit()
			if every <= 0 {
				return nil
			}

			a.logger.Info("proactive_loop_start", "every", every.String(), "count", count)
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for count <= 0 || emitted < count {
				select {
				case <-cmd.Context().Done():
					a.logger.Info("proactive_loop_stop", "emitted", emitted)
					return nil
				case <-ticker.C:
					emit()
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&profilePath, "profile", "", "Profile written by train.")
	f.DurationVar(&every, "every", 0, "Repeat on this interval (e.g. 1h) until interrupted; 0 emits once.")
	f.IntVar(&count, "count", 0, "Stop after this many messages when --every is set (0 = unlimited).")
	f.IntVar(&hour, "hour", -1, "Pretend the local hour is this value (0..23).")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
