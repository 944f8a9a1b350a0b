package persona

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// HowWeMetPolicy selects which matching message becomes RelationshipDetails.HowWeMet.
type HowWeMetPolicy string

const (
	// HowWeMetFirst keeps the earliest matching message.
	HowWeMetFirst HowWeMetPolicy = "first"
	// HowWeMetLast keeps the latest matching message (each match overwrites the previous one).
	HowWeMetLast HowWeMetPolicy = "last"
)

// ProfileOptions tunes BuildProfileWithOptions. The zero value matches BuildProfile.
type ProfileOptions struct {
	// HowWeMet defaults to HowWeMetFirst.
	HowWeMet HowWeMetPolicy

	// DedupeMemories records a message at most once even if it matches several triggers.
	// By default every matching trigger yields its own memory entry.
	DedupeMemories bool

	// PetNames overrides the matcher used for pet-name extraction.
	PetNames PatternMatcher
}

// BuildProfile derives a PersonalityProfile from messages.
// Messages with blank text are ignored. An empty history yields NeutralProfile.
func BuildProfile(messages []Message) PersonalityProfile {
	return BuildProfileWithOptions(messages, ProfileOptions{})
}

// BuildProfileWithOptions is BuildProfile with explicit options.
func BuildProfileWithOptions(messages []Message, opts ProfileOptions) PersonalityProfile {
	scans := prepareScans(messages)
	if len(scans) == 0 {
		return NeutralProfile()
	}
	if opts.HowWeMet == "" {
		opts.HowWeMet = HowWeMetFirst
	}
	if opts.PetNames == nil {
		opts.PetNames = defaultPetNameMatcher
	}

	return PersonalityProfile{
		CommunicationStyle:  classifyStyle(scans),
		CommonPhrases:       extractCommonPhrases(scans),
		Topics:              extractTopics(scans),
		EmotionalTone:       classifyTone(scans),
		ResponsePatterns:    analyzeResponsePatterns(scans),
		Memories:            extractMemories(scans, opts.DedupeMemories),
		RelationshipDetails: extractRelationshipDetails(scans, opts),
	}
}

// scanned is a message with its lowercased text computed once.
type scanned struct {
	msg   Message
	lower string
}

func prepareScans(messages []Message) []scanned {
	out := make([]scanned, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, scanned{msg: m, lower: strings.ToLower(m.Text)})
	}
	return out
}

func classifyStyle(scans []scanned) CommunicationStyle {
	totalLen := 0
	emoji := 0
	for _, s := range scans {
		totalLen += utf8.RuneCountInString(s.msg.Text)
		emoji += countEmoji(s.msg.Text)
	}
	return styleFor(float64(totalLen)/float64(len(scans)), emoji)
}

// styleFor applies the style rules in precedence order; only the first match counts.
func styleFor(avgLen float64, emojiCount int) CommunicationStyle {
	switch {
	case avgLen < 50 && emojiCount > 5:
		return StyleCasualEmoji
	case avgLen > 200:
		return StyleDetailedThoughtful
	case emojiCount > 10:
		return StylePlayfulExpressive
	default:
		return StyleBalanced
	}
}

func extractCommonPhrases(scans []scanned) []string {
	counts := make(map[string]int)
	var order []string
	for _, s := range scans {
		for _, w := range affectWords {
			if !strings.Contains(s.lower, w) {
				continue
			}
			phrase, ok := phraseAround(s.msg.Text, w)
			if !ok || phrase == "" {
				continue
			}
			if _, seen := counts[phrase]; !seen {
				order = append(order, phrase)
			}
			counts[phrase]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return append([]string{}, limitStrings(order, maxCommonPhrases)...)
}

func extractTopics(scans []scanned) []string {
	found := make(map[string]bool, len(profileTopics))
	for _, s := range scans {
		for _, rule := range profileTopics {
			if !found[rule.name] && containsAny(s.lower, rule.keywords) {
				found[rule.name] = true
			}
		}
	}
	out := make([]string, 0, len(found))
	for _, rule := range profileTopics {
		if found[rule.name] {
			out = append(out, rule.name)
		}
	}
	return out
}

func classifyTone(scans []scanned) EmotionalTone {
	pos, neg := 0, 0
	for _, s := range scans {
		pos += countPresent(s.lower, positiveWords)
		neg += countPresent(s.lower, negativeWords)
	}
	return toneFor(pos, neg)
}

func toneFor(pos, neg int) EmotionalTone {
	switch {
	case pos > neg*2:
		return ToneVeryPositive
	case pos > neg:
		return TonePositive
	case neg > pos:
		return ToneSupportive
	default:
		return ToneNeutral
	}
}

func analyzeResponsePatterns(scans []scanned) ResponsePatterns {
	questions, exclamations := 0, 0
	for _, s := range scans {
		if strings.Contains(s.msg.Text, "?") {
			questions++
		}
		if strings.Contains(s.msg.Text, "!") {
			exclamations++
		}
	}
	n := float64(len(scans))
	return ResponsePatterns{
		AverageResponseIntervalMs: averageResponseIntervalMs(scans),
		QuestionFrequency:         float64(questions) / n,
		ExclamationFrequency:      float64(exclamations) / n,
	}
}

func averageResponseIntervalMs(scans []scanned) float64 {
	var total float64
	count := 0
	for i := 1; i < len(scans); i++ {
		delta := scans[i].msg.Timestamp.Sub(scans[i-1].msg.Timestamp)
		if delta > 0 && delta < MaxResponseGap {
			total += float64(delta.Milliseconds())
			count++
		}
	}
	if count == 0 {
		return float64(DefaultResponseInterval.Milliseconds())
	}
	return total / float64(count)
}

func extractMemories(scans []scanned, dedupe bool) []Memory {
	memories := make([]Memory, 0)
	for _, s := range scans {
		importance := importanceOf(s.lower)
		for _, trigger := range memoryTriggers {
			if !strings.Contains(s.lower, trigger) {
				continue
			}
			memories = append(memories, Memory{
				Content:    s.msg.Text,
				Importance: importance,
				Timestamp:  s.msg.Timestamp,
			})
			if dedupe {
				break
			}
		}
	}

	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Importance > memories[j].Importance
	})
	if len(memories) > maxMemories {
		memories = memories[:maxMemories]
	}
	return memories
}

func extractRelationshipDetails(scans []scanned, opts ProfileOptions) RelationshipDetails {
	d := RelationshipDetails{
		FavoriteMoments: []string{},
		InsideJokes:     []string{},
		PetNames:        []string{},
	}
	metFound := false
	for _, s := range scans {
		if containsAny(s.lower, howWeMetMarkers) {
			if opts.HowWeMet == HowWeMetLast || !metFound {
				d.HowWeMet = s.msg.Text
			}
			metFound = true
		}
		if containsAny(s.lower, favoriteMomentMarkers) {
			d.FavoriteMoments = append(d.FavoriteMoments, s.msg.Text)
		}
		if containsAny(s.lower, insideJokeMarkers) {
			d.InsideJokes = append(d.InsideJokes, s.msg.Text)
		}
		d.PetNames = append(d.PetNames, ExtractPatternMatches(s.msg.Text, opts.PetNames)...)
	}
	return d
}
