package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/theimaginaryfoundation/remember-o-bot/internal/logutil"
	"github.com/theimaginaryfoundation/remember-o-bot/persona"
	"github.com/theimaginaryfoundation/remember-o-bot/persona/provider"
)

const envPrefix = "REMEMBER_O_BOT"

type Config struct {
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIBaseURL       string
	OpenAIRatePerMinute int

	RemoteEnabled bool
	RemoteTimeout time.Duration

	PhraseChance float64
	MemoryChance float64

	MinMessages int
	HowWeMet    string

	ServerBind        string
	ServerPort        int
	ServerCORSOrigins []string

	Logging logutil.Config
}

func (c Config) Validate() error {
	if c.PhraseChance < 0 || c.PhraseChance > 1 {
		return errors.New("reply.phrase_chance must be within [0,1]")
	}
	if c.MemoryChance < 0 || c.MemoryChance > 1 {
		return errors.New("proactive.memory_chance must be within [0,1]")
	}
	if c.MinMessages < 1 {
		return errors.New("train.min_messages must be >= 1")
	}
	switch persona.HowWeMetPolicy(c.HowWeMet) {
	case persona.HowWeMetFirst, persona.HowWeMetLast:
	default:
		return fmt.Errorf("train.how_we_met must be first or last, got %q", c.HowWeMet)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.ServerPort)
	}
	if c.RemoteTimeout < 0 {
		return errors.New("remote.timeout must be >= 0")
	}
	if _, err := logutil.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// UseRemote reports whether replies should try the OpenAI backend first.
func (c Config) UseRemote() bool {
	return c.RemoteEnabled && strings.TrimSpace(c.OpenAIAPIKey) != ""
}

func defaultConfig() Config {
	return Config{
		OpenAIModel:         provider.DefaultModel,
		OpenAIRatePerMinute: provider.DefaultRatePerMinute,
		RemoteEnabled:       true,
		RemoteTimeout:       persona.DefaultRemoteTimeout,
		PhraseChance:        persona.DefaultPhraseChance,
		MemoryChance:        persona.DefaultMemoryChance,
		MinMessages:         persona.MinTrainingMessages,
		HowWeMet:            string(persona.HowWeMetFirst),
		ServerBind:          "127.0.0.1",
		ServerPort:          3002,
		Logging:             logutil.Config{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig()
	v.SetDefault("openai.model", d.OpenAIModel)
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.rate_per_minute", d.OpenAIRatePerMinute)
	v.SetDefault("remote.enabled", d.RemoteEnabled)
	v.SetDefault("remote.timeout", d.RemoteTimeout)
	v.SetDefault("reply.phrase_chance", d.PhraseChance)
	v.SetDefault("proactive.memory_chance", d.MemoryChance)
	v.SetDefault("train.min_messages", d.MinMessages)
	v.SetDefault("train.how_we_met", d.HowWeMet)
	v.SetDefault("server.bind", d.ServerBind)
	v.SetDefault("server.port", d.ServerPort)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.add_source", false)
}

func configFromViper(v *viper.Viper) Config {
	apiKey := v.GetString("openai.api_key")
	if strings.TrimSpace(apiKey) == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return Config{
		OpenAIAPIKey:        apiKey,
		OpenAIModel:         v.GetString("openai.model"),
		OpenAIBaseURL:       v.GetString("openai.base_url"),
		OpenAIRatePerMinute: v.GetInt("openai.rate_per_minute"),
		RemoteEnabled:       v.GetBool("remote.enabled"),
		RemoteTimeout:       v.GetDuration("remote.timeout"),
		PhraseChance:        v.GetFloat64("reply.phrase_chance"),
		MemoryChance:        v.GetFloat64("proactive.memory_chance"),
		MinMessages:         v.GetInt("train.min_messages"),
		HowWeMet:            strings.ToLower(strings.TrimSpace(v.GetString("train.how_we_met"))),
		ServerBind:          v.GetString("server.bind"),
		ServerPort:          v.GetInt("server.port"),
		ServerCORSOrigins:   v.GetStringSlice("server.cors_origins"),
		Logging:             logutil.ConfigFromViper(v),
	}
}
