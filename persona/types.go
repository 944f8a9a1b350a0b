package persona

import "time"

// SenderRole identifies who wrote a message from the perspective of the person training the profile.
type SenderRole string

const (
	// RoleSelf is the person using the app.
	RoleSelf SenderRole = "self"
	// RoleOther is the person being learned from; generated replies speak as them.
	RoleOther SenderRole = "other"
	// RoleSystem marks app-generated notices.
	RoleSystem SenderRole = "system"
)

// Message is one entry of a chat history. The core never mutates or persists messages.
type Message struct {
	ID         string     `json:"id" yaml:"id"`
	Text       string     `json:"text" yaml:"text"`
	SenderRole SenderRole `json:"sender_role" yaml:"sender_role"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
}

// CommunicationStyle is the single style label chosen for a history.
type CommunicationStyle string

const (
	StyleCasualEmoji        CommunicationStyle = "casual-emoji"
	StyleDetailedThoughtful CommunicationStyle = "detailed-thoughtful"
	StylePlayfulExpressive  CommunicationStyle = "playful-expressive"
	StyleBalanced           CommunicationStyle = "balanced"
)

// EmotionalTone is the overall affect of a history.
type EmotionalTone string

const (
	ToneVeryPositive EmotionalTone = "very-positive"
	TonePositive     EmotionalTone = "positive"
	ToneSupportive   EmotionalTone = "supportive"
	ToneNeutral      EmotionalTone = "neutral"
)

// PersonalityProfile is the heuristic summary of a message history.
// It is a plain value: serialize it, store it, and pass it back unchanged to the generators.
type PersonalityProfile struct {
	CommunicationStyle  CommunicationStyle  `json:"communication_style" yaml:"communication_style" jsonschema:"enum=casual-emoji,enum=detailed-thoughtful,enum=playful-expressive,enum=balanced"`
	CommonPhrases       []string            `json:"common_phrases" yaml:"common_phrases"`
	Topics              []string            `json:"topics" yaml:"topics"`
	EmotionalTone       EmotionalTone       `json:"emotional_tone" yaml:"emotional_tone" jsonschema:"enum=very-positive,enum=positive,enum=supportive,enum=neutral"`
	ResponsePatterns    ResponsePatterns    `json:"response_patterns" yaml:"response_patterns"`
	Memories            []Memory            `json:"memories" yaml:"memories"`
	RelationshipDetails RelationshipDetails `json:"relationship_details" yaml:"relationship_details"`
}

// ResponsePatterns holds simple timing and punctuation statistics.
type ResponsePatterns struct {
	AverageResponseIntervalMs float64 `json:"average_response_interval_ms" yaml:"average_response_interval_ms"`
	QuestionFrequency         float64 `json:"question_frequency" yaml:"question_frequency" jsonschema:"minimum=0,maximum=1"`
	ExclamationFrequency      float64 `json:"exclamation_frequency" yaml:"exclamation_frequency" jsonschema:"minimum=0,maximum=1"`
}

// Memory is a message flagged by a trigger phrase, weighted by Importance (>= 1).
type Memory struct {
	Content    string    `json:"content" yaml:"content"`
	Importance int       `json:"importance" yaml:"importance" jsonschema:"minimum=1"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// RelationshipDetails are facts pulled verbatim from the history.
type RelationshipDetails struct {
	HowWeMet        string   `json:"how_we_met" yaml:"how_we_met"`
	FavoriteMoments []string `json:"favorite_moments" yaml:"favorite_moments"`
	InsideJokes     []string `json:"inside_jokes" yaml:"inside_jokes"`
	PetNames        []string `json:"pet_names" yaml:"pet_names"`
}

// NeutralProfile is the profile returned for an empty (or entirely malformed) history.
func NeutralProfile() PersonalityProfile {
	return PersonalityProfile{
		CommunicationStyle: StyleBalanced,
		CommonPhrases:      []string{},
		Topics:             []string{},
		EmotionalTone:      ToneNeutral,
		ResponsePatterns: ResponsePatterns{
			AverageResponseIntervalMs: float64(DefaultResponseInterval.Milliseconds()),
		},
		Memories: []Memory{},
		RelationshipDetails: RelationshipDetails{
			FavoriteMoments: []string{},
			InsideJokes:     []string{},
			PetNames:        []string{},
		},
	}
}
