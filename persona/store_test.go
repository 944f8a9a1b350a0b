package persona

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/theimaginaryfoundation/remember-o-bot/persona/fileutils"
)

func sampleProfile() PersonalityProfile {
	p := BuildProfile([]Message{
		{Text: "remember our first trip? so special", Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		{Text: "we met at the library haha, my love", Timestamp: time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)},
		{Text: "favorite dinner ever 😊", Timestamp: time.Date(2025, 3, 1, 12, 6, 0, 0, time.UTC)},
	})
	return p
}

func assertSameProfile(t *testing.T, got, want PersonalityProfile) {
	t.Helper()

	if len(got.Memories) != len(want.Memories) {
		t.Fatalf("memories=%d want %d", len(got.Memories), len(want.Memories))
	}
	for i := range want.Memories {
		if !got.Memories[i].Timestamp.Equal(want.Memories[i].Timestamp) {
			t.Fatalf("memories[%d].Timestamp=%v", i, got.Memories[i].Timestamp)
		}
		got.Memories[i].Timestamp = want.Memories[i].Timestamp
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("profile mismatch:\n got=%+v\nwant=%+v", got, want)
	}
}

func TestSaveLoadProfile_JSON(t *testing.T) {
	t.Parallel()

	want := sampleProfile()
	path := filepath.Join(t.TempDir(), "profiles", "sam.json")
	if err := SaveProfile(path, want); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	got, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	assertSameProfile(t, got, want)
}

func TestSaveLoadProfile_YAML(t *testing.T) {
	t.Parallel()

	want := sampleProfile()
	path := filepath.Join(t.TempDir(), "sam.yaml")
	if err := SaveProfile(path, want); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	b, _ := os.ReadFile(path)
	if len(b) == 0 || b[0] == '{' {
		t.Fatalf("expected yaml document, got %q", string(b))
	}
	got, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	assertSameProfile(t, got, want)
}

func TestLoadProfile_FillsMissingLists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "min.json")
	if err := os.WriteFile(path, []byte(`{"communication_style":"casual-emoji"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.CommunicationStyle != StyleCasualEmoji || p.EmotionalTone != ToneNeutral {
		t.Fatalf("p=%+v", p)
	}
	if p.CommonPhrases == nil || p.Memories == nil || p.RelationshipDetails.InsideJokes == nil {
		t.Fatalf("lists must be non-nil: %+v", p)
	}
}

func TestLoadProfile_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"communicationStyle":"casual-emoji"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadProfile(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveProfile_EmptyPath(t *testing.T) {
	t.Parallel()

	if err := SaveProfile("", NeutralProfile()); !errors.Is(err, fileutils.ErrEmptyPath) {
		t.Fatalf("err=%v", err)
	}
	if _, err := LoadProfile(""); !errors.Is(err, fileutils.ErrEmptyPath) {
		t.Fatalf("err=%v", err)
	}
}

func TestDecodeProfile(t *testing.T) {
	t.Parallel()

	p, err := DecodeProfile(strings.NewReader(`{"common_phrases":["love you"]}`))
	if err != nil {
		t.Fatalf("DecodeProfile: %v", err)
	}
	if p.CommunicationStyle != StyleBalanced || len(p.CommonPhrases) != 1 || p.Topics == nil {
		t.Fatalf("p=%+v", p)
	}
	if _, err := DecodeProfile(strings.NewReader(`{"commonPhrases":["love you"]}`)); err == nil {
		t.Fatalf("expected error for camelCase key")
	}
}
