package persona

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/remember-o-bot/persona/fileutils"
)

// SaveProfile writes p to path atomically, as YAML for *.yaml/*.yml and indented JSON otherwise.
func SaveProfile(path string, p PersonalityProfile) error {
	if path == "" {
		return fmt.Errorf("SaveProfile: %w", fileutils.ErrEmptyPath)
	}
	var err error
	if fileutils.IsYAMLPath(path) {
		err = fileutils.WriteYAMLFileAtomic(path, p)
	} else {
		err = fileutils.WriteJSONFileAtomic(path, p, true)
	}
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}
	return nil
}

// LoadProfile reads a profile written by SaveProfile. Missing lists come back empty, not nil.
func LoadProfile(path string) (PersonalityProfile, error) {
	if path == "" {
		return PersonalityProfile{}, fmt.Errorf("LoadProfile: %w", fileutils.ErrEmptyPath)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return PersonalityProfile{}, fmt.Errorf("LoadProfile: read: %w", err)
	}
	var p PersonalityProfile
	if fileutils.IsYAMLPath(path) {
		if err := yaml.Unmarshal(b, &p); err != nil {
			return PersonalityProfile{}, fmt.Errorf("LoadProfile: parse yaml: %w", err)
		}
		return normalizeProfile(p), nil
	}
	p, err = DecodeProfile(bytes.NewReader(b))
	if err != nil {
		return PersonalityProfile{}, fmt.Errorf("LoadProfile: %w", err)
	}
	return p, nil
}

// DecodeProfile reads one JSON profile from r. Unknown keys (such as camelCase variants of the
// snake_case fields) are an error.
func DecodeProfile(r io.Reader) (PersonalityProfile, error) {
	var p PersonalityProfile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return PersonalityProfile{}, fmt.Errorf("DecodeProfile: %w", err)
	}
	return normalizeProfile(p), nil
}

func normalizeProfile(p PersonalityProfile) PersonalityProfile {
	if p.CommunicationStyle == "" {
		p.CommunicationStyle = StyleBalanced
	}
	if p.EmotionalTone == "" {
		p.EmotionalTone = ToneNeutral
	}
	if p.CommonPhrases == nil {
		p.CommonPhrases = []string{}
	}
	if p.Topics == nil {
		p.Topics = []string{}
	}
	if p.Memories == nil {
		p.Memories = []Memory{}
	}
	rd := &p.RelationshipDetails
	if rd.FavoriteMoments == nil {
		rd.FavoriteMoments = []string{}
	}
	if rd.InsideJokes == nil {
		rd.InsideJokes = []string{}
	}
	if rd.PetNames == nil {
		rd.PetNames = []string{}
	}
	return p
}
