package persona

import (
	"fmt"
	"strings"
)

const (
	promptMemories        = 5
	promptFavoriteMoments = 3
	promptInsideJokes     = 3
	transcriptTurns       = 10
)

// BuildSystemPrompt renders the instruction that asks a remote model to speak like the profiled person.
func BuildSystemPrompt(p PersonalityProfile) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that has learned to communicate like a specific person based on their message history.\n\n")
	fmt.Fprintf(&b, "Communication Style: %s\n", p.CommunicationStyle)
	fmt.Fprintf(&b, "Emotional Tone: %s\n", p.EmotionalTone)
	fmt.Fprintf(&b, "Common Topics: %s\n\n", strings.Join(p.Topics, ", "))

	b.WriteString("Important Memories:\n")
	for _, m := range limitMemories(p.Memories, promptMemories) {
		fmt.Fprintf(&b, "- %s\n", flattenNewlines(m.Content))
	}
	b.WriteString("\n")

	rd := p.RelationshipDetails
	howWeMet := strings.TrimSpace(rd.HowWeMet)
	if howWeMet == "" {
		howWeMet = "Not specified"
	}
	b.WriteString("Relationship Details:\n")
	fmt.Fprintf(&b, "- How we met: %s\n", flattenNewlines(howWeMet))
	fmt.Fprintf(&b, "- Favorite moments: %s\n", joinFlat(limitStrings(rd.FavoriteMoments, promptFavoriteMoments)))
	fmt.Fprintf(&b, "- Inside jokes: %s\n\n", joinFlat(limitStrings(rd.InsideJokes, promptInsideJokes)))

	b.WriteString("Respond naturally in their communication style, maintaining their emotional tone and personality. Be authentic and caring.")
	return b.String()
}

// BuildTranscript maps the last transcriptTurns history messages to role-tagged turns.
// Self messages become "user", the other person's become "assistant"; system notices and
// blank messages are dropped.
func BuildTranscript(history []Message) []Turn {
	if len(history) > transcriptTurns {
		history = history[len(history)-transcriptTurns:]
	}
	out := make([]Turn, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		switch m.SenderRole {
		case RoleSelf:
			out = append(out, Turn{Role: "user", Content: text})
		case RoleOther:
			out = append(out, Turn{Role: "assistant", Content: text})
		}
	}
	return out
}

// BuildCompletionRequest assembles the remote request for message.
func BuildCompletionRequest(message string, history []Message, p PersonalityProfile) CompletionRequest {
	return CompletionRequest{
		System:     BuildSystemPrompt(p),
		Transcript: BuildTranscript(history),
		Message:    message,
	}
}

func limitMemories(in []Memory, max int) []Memory {
	if len(in) <= max {
		return in
	}
	return in[:max]
}

func joinFlat(items []string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, flattenNewlines(s))
	}
	return strings.Join(out, ", ")
}

func flattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
