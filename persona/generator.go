package persona

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultPhraseChance  = 0.3
	DefaultMemoryChance  = 0.5
	DefaultRemoteTimeout = 20 * time.Second
)

// Generator produces replies and proactive messages from a stored profile.
// A Generator is safe for concurrent use as long as its Rand is (see NewLockedRand).
type Generator struct {
	// Remote is the optional completion backend. Nil behaves like NullCompleter.
	Remote Completer
	Rand   Rand
	Logger *slog.Logger

	// PhraseChance is the probability of answering with a learned common phrase.
	PhraseChance float64
	// MemoryChance is the probability of appending a memory to a proactive message.
	MemoryChance float64
	// RemoteTimeout bounds a single remote completion (0 = DefaultRemoteTimeout, <0 = none).
	RemoteTimeout time.Duration
}

// NewGenerator returns a Generator with default chances, a time-seeded LockedRand and no remote backend.
func NewGenerator() *Generator {
	return &Generator{
		Rand:          NewLockedRand(time.Now().UnixNano()),
		PhraseChance:  DefaultPhraseChance,
		MemoryChance:  DefaultMemoryChance,
		RemoteTimeout: DefaultRemoteTimeout,
	}
}

// GenerateReply answers message as the profiled person.
// The remote backend is tried first when configured; any failure, timeout or cancellation
// falls back to the local templates. It never returns an empty string.
func (g *Generator) GenerateReply(ctx context.Context, message string, history []Message, profile PersonalityProfile) string {
	if ctx == nil {
		ctx = context.Background()
	}
	if g.Remote != nil {
		reply, err := g.remoteReply(ctx, message, history, profile)
		if err == nil {
			return reply
		}
		if errors.Is(err, ErrRemoteUnavailable) {
			g.logger().Debug("remote_reply_skipped", "error", err.Error())
		} else {
			g.logger().Warn("remote_reply_failed", "error", err.Error())
		}
	}
	return g.GenerateLocalReply(message, profile)
}

func (g *Generator) remoteReply(ctx context.Context, message string, history []Message, profile PersonalityProfile) (string, error) {
	timeout := g.RemoteTimeout
	if timeout == 0 {
		timeout = DefaultRemoteTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := g.Remote.Complete(ctx, BuildCompletionRequest(message, history, profile))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("remoteReply: empty completion")
	}
	g.logger().Debug("remote_reply_ok", "duration", time.Since(start).String(), "chars", len(reply))
	return reply, nil
}

// GenerateLocalReply picks a reply from learned phrases or the topic template pools.
func (g *Generator) GenerateLocalReply(message string, profile PersonalityProfile) string {
	r := g.rand()
	var reply string
	if len(profile.CommonPhrases) > 0 && r.Float64() < g.phraseChance() {
		reply = pick(r, profile.CommonPhrases)
	} else {
		reply = pick(r, ReplyPool(DetectTopic(message)))
	}
	if wantsEmoji(profile.CommunicationStyle) {
		reply += " " + pick(r, replyEmojis)
	}
	return reply
}

// DetectTopic returns the first reply topic whose keywords occur in message, or TopicGeneral.
func DetectTopic(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range replyTopics {
		if containsAny(lower, rule.keywords) {
			return rule.name
		}
	}
	return TopicGeneral
}

func wantsEmoji(style CommunicationStyle) bool {
	s := string(style)
	return strings.Contains(s, "emoji") || strings.Contains(s, "playful")
}

// GenerateProactiveMessage returns an unprompted outreach message for the time slot of now,
// sometimes followed by one of the profile's memories.
func (g *Generator) GenerateProactiveMessage(profile PersonalityProfile, now time.Time) string {
	r := g.rand()
	msg := pick(r, ProactiveTemplates(now.Hour()))
	if len(profile.Memories) > 0 && r.Float64() < g.memoryChance() {
		m := profile.Memories[r.Intn(len(profile.Memories))]
		return fmt.Sprintf("%s. %s", msg, m.Content)
	}
	return msg
}

var fallbackRand = NewLockedRand(time.Now().UnixNano())

func (g *Generator) rand() Rand {
	if g.Rand == nil {
		return fallbackRand
	}
	return g.Rand
}

func (g *Generator) phraseChance() float64 {
	if g.PhraseChance < 0 {
		return 0
	}
	return g.PhraseChance
}

func (g *Generator) memoryChance() float64 {
	if g.MemoryChance < 0 {
		return 0
	}
	return g.MemoryChance
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return discardLogger
	}
	return g.Logger
}
