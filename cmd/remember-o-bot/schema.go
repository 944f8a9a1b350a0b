package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
	"github.com/theimaginaryfoundation/remember-o-bot/persona/provider"
)

func newSchemaCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the profile file format",
		RunE: func(cmd *cobra.Command, args []string) error {
			var schema any = provider.ReflectSchema[persona.PersonalityProfile]()
			if strict {
				schema = provider.GenerateSchema[persona.PersonalityProfile]()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(schema)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Emit the closed, all-required variant used for structured model output.")
	return cmd
}
