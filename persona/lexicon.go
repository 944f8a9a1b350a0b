package persona

import "time"

const (
	// MinTrainingMessages is the history size callers should require before building a profile.
	MinTrainingMessages = 10

	// DefaultResponseInterval is used when no consecutive pair falls inside MaxResponseGap.
	DefaultResponseInterval = 5 * time.Minute
	// MaxResponseGap excludes pauses that are not really replies.
	MaxResponseGap = time.Hour

	maxCommonPhrases = 20
	maxMemories      = 50
	phraseWindow     = 10 // runes either side of the matched word
)

// topicRule maps a topic name to its keywords. Rules are evaluated in declaration order.
type topicRule struct {
	name     string
	keywords []string
}

var affectWords = []string{"love", "you", "miss", "think", "wish", "hope", "always", "forever"}

var profileTopics = []topicRule{
	{name: "work", keywords: []string{"work", "job", "office", "meeting"}},
	{name: "food", keywords: []string{"food", "eat", "dinner", "lunch", "cooking"}},
	{name: "travel", keywords: []string{"travel", "trip", "vacation", "flight"}},
	{name: "family", keywords: []string{"family", "mom", "dad", "parents"}},
	{name: "hobbies", keywords: []string{"hobby", "game", "movie", "book", "music"}},
}

var (
	positiveWords = []string{"love", "happy", "excited", "wonderful", "amazing", "beautiful"}
	negativeWords = []string{"sad", "miss", "worry", "stress", "tired"}
)

var (
	memoryTriggers = []string{"remember", "when we", "that time", "first", "always", "never forget"}
	importantWords = []string{"first", "always", "never", "forever", "special", "amazing"}
)

var (
	howWeMetMarkers       = []string{"met", "first time"}
	favoriteMomentMarkers = []string{"favorite", "best moment"}
	insideJokeMarkers     = []string{"haha", "lol", "funny"}
)

const petNamePattern = `(?i)(?:my|your|our)\s+(\w+)`

// TopicVocabulary returns the topic names BuildProfile may emit, in emission order.
func TopicVocabulary() []string {
	out := make([]string, 0, len(profileTopics))
	for _, r := range profileTopics {
		out = append(out, r.name)
	}
	return out
}

// Reply topics. "general" is the catch-all and has no keywords.
const (
	TopicLove    = "love"
	TopicWork    = "work"
	TopicFood    = "food"
	TopicPlans   = "plans"
	TopicGeneral = "general"
)

var replyTopics = []topicRule{
	{name: TopicLove, keywords: []string{"love", "miss", "care", "heart"}},
	{name: TopicWork, keywords: []string{"work", "job", "office"}},
	{name: TopicFood, keywords: []string{"food", "eat", "hungry", "dinner"}},
	{name: TopicPlans, keywords: []string{"plan", "tomorrow", "weekend", "next"}},
}

var replyPools = map[string][]string{
	TopicLove: {
		"I love you too, always",
		"You mean everything to me",
		"Thinking of you always",
		"You're my everything",
	},
	TopicWork: {
		"Hope work is going well",
		"You've got this!",
		"Can't wait to hear about your day",
		"Take care of yourself",
	},
	TopicGeneral: {
		"That's interesting, tell me more",
		"I understand",
		"I'm here for you",
		"That sounds great",
	},
}

var replyEmojis = []string{"❤️", "💕", "😊", "✨", "💖"}

// ReplyPool returns the template pool used for a detected topic.
func ReplyPool(topic string) []string {
	if pool, ok := replyPools[topic]; ok {
		return append([]string(nil), pool...)
	}
	return append([]string(nil), replyPools[TopicGeneral]...)
}

// ReplyEmojis returns the emoji set appended for expressive styles.
func ReplyEmojis() []string {
	return append([]string(nil), replyEmojis...)
}

// proactiveTemplates is keyed by the start hour of a 6-hour slot, so hours 18-23 share the
// evening list and there is no separate night slot. Hours 0-5 use proactiveFallback.
var proactiveTemplates = map[int][]string{
	6:  {"Good morning! Hope you have a wonderful day", "Morning! Thinking of you"},
	12: {"How's your lunch going?", "Hope you're having a good day"},
	18: {"How was your day?", "Evening! What did you do today?"},
}

var proactiveFallback = []string{
	"How's your day going?",
	"I was just thinking about you",
	"Remember when we...",
	"I miss you",
	"What are you up to?",
}

// ProactiveTemplates returns the candidate messages for the slot containing hour.
func ProactiveTemplates(hour int) []string {
	if list, ok := proactiveTemplates[hourSlot(hour)]; ok {
		return append([]string(nil), list...)
	}
	return append([]string(nil), proactiveFallback...)
}

func hourSlot(hour int) int {
	return (hour / 6) * 6
}
