package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theimaginaryfoundation/remember-o-bot/internal/logutil"
	"github.com/theimaginaryfoundation/remember-o-bot/persona"
	"github.com/theimaginaryfoundation/remember-o-bot/persona/provider"
)

// app carries per-invocation state shared by the subcommands.
type app struct {
	v      *viper.Viper
	cfg    Config
	logger *slog.Logger

	// Tests replace these to pin outputs.
	clock persona.Clock
	rand  persona.Rand
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithApp(&app{clock: persona.SystemClock{}})
}

func newRootCmdWithApp(a *app) *cobra.Command {
	if a.v == nil {
		a.v = viper.New()
	}
	if a.clock == nil {
		a.clock = persona.SystemClock{}
	}

	cmd := &cobra.Command{
		Use:          "remember-o-bot",
		Short:        "Learn how someone writes and answer in their voice",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "Config file path (yaml/json/toml, optional).")
	pf.String("env-file", ".env", "Dotenv file loaded before reading the environment (missing file is ignored).")
	pf.String("log-level", "info", "Log level: debug|info|warn|error.")
	pf.String("log-format", "text", "Log format: text|json.")
	_ = a.v.BindPFlag("config", pf.Lookup("config"))
	_ = a.v.BindPFlag("env_file", pf.Lookup("env-file"))
	_ = a.v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", pf.Lookup("log-format"))

	cmd.AddCommand(newTrainCmd(a))
	cmd.AddCommand(newReplyCmd(a))
	cmd.AddCommand(newProactiveCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newMemoriesCmd(a))
	cmd.AddCommand(newSchemaCmd(a))

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	if envFile := strings.TrimSpace(a.v.GetString("env_file")); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	setDefaults(a.v)
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if cfgFile := strings.TrimSpace(a.v.GetString("config")); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	a.cfg = configFromViper(a.v)
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger, err := logutil.New(a.cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) generator() (*persona.Generator, error) {
	g := persona.NewGenerator()
	g.Logger = a.logger
	g.PhraseChance = a.cfg.PhraseChance
	g.MemoryChance = a.cfg.MemoryChance
	g.RemoteTimeout = a.cfg.RemoteTimeout
	if a.rand != nil {
		g.Rand = a.rand
	}
	if !a.cfg.UseRemote() {
		a.logger.Debug("remote_disabled", "enabled", a.cfg.RemoteEnabled, "has_api_key", a.cfg.OpenAIAPIKey != "")
		return g, nil
	}
	c, err := provider.NewOpenAICompleter(provider.OpenAIConfig{
		APIKey:        a.cfg.OpenAIAPIKey,
		Model:         a.cfg.OpenAIModel,
		BaseURL:       a.cfg.OpenAIBaseURL,
		RatePerMinute: a.cfg.OpenAIRatePerMinute,
	})
	if err != nil {
		return nil, err
	}
	g.Remote = c
	return g, nil
}
