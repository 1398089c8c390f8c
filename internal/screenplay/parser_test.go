package screenplay

import (
	"errors"
	"testing"
)

const sampleScript = `Title: The Basement
Author: A. Writer
Draft date: 2024-03-01

INT. APARTMENT - NIGHT

SARAH unpacks boxes. The radiator clanks. She freezes, listening.

SARAH
(whispering)
Hello? Is someone down there?

She picks up THE CROWBAR from a moving box.

MARCUS (V.O.)
Don't go down there, Sarah.

CUT TO:

EXT. STREET - DAY

Sarah walks fast, phone pressed to her ear. MRS HALLORAN watches
from her porch.

SARAH
I heard it again last night.
I'm not imagining this.
`

func TestParseSplitsScenes(t *testing.T) {
	sp, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatal(err)
	}

	if sp.Title != "The Basement" || sp.Author != "A. Writer" || sp.DraftDate != "2024-03-01" {
		t.Errorf("title page wrong: %q %q %q", sp.Title, sp.Author, sp.DraftDate)
	}
	if len(sp.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(sp.Scenes))
	}

	s1 := sp.Scenes[0]
	if s1.ID != 1 || s1.InteriorExterior != "INT" || s1.Location != "APARTMENT" || s1.TimeOfDay != "NIGHT" {
		t.Errorf("scene 1 heading parsed wrong: %+v", s1)
	}
	if s1.IsLast {
		t.Error("scene 1 flagged as last")
	}
	if !sp.Scenes[1].IsLast {
		t.Error("final scene not flagged")
	}
}

func TestParseClassifiesSpeakers(t *testing.T) {
	sp, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatal(err)
	}
	s1 := sp.Scenes[0]

	if got := s1.CharactersSpeaking; len(got) != 2 || got[0] != "MARCUS" || got[1] != "SARAH" {
		t.Errorf("speaking = %v, want MARCUS (V.O. stripped) and SARAH", got)
	}
	if s1.SpeakingLines("SARAH") != 1 {
		t.Errorf("SARAH speaking lines = %d, want 1", s1.SpeakingLines("SARAH"))
	}

	// The crowbar is an emphasized multi-word caps run, not a character.
	if got := s1.Objects; len(got) != 1 || got[0] != "THE CROWBAR" {
		t.Errorf("objects = %v, want [THE CROWBAR]", got)
	}
	for _, name := range s1.CharactersPresent {
		if name == "THE CROWBAR" {
			t.Error("object leaked into characters present")
		}
	}
}

func TestParseKeepsSilentCharactersPresent(t *testing.T) {
	sp, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatal(err)
	}
	s2 := sp.Scenes[1]

	found := false
	for _, name := range s2.CharactersPresent {
		if name == "MRS HALLORAN" {
			found = true
		}
	}
	if !found {
		t.Errorf("silent character missing from present: %v", s2.CharactersPresent)
	}
	for _, name := range s2.CharactersSpeaking {
		if name == "MRS HALLORAN" {
			t.Error("silent character marked speaking")
		}
	}
}

func TestParseElementTypes(t *testing.T) {
	sp, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatal(err)
	}
	s1 := sp.Scenes[0]

	var kinds []ElementType
	for _, el := range s1.Elements {
		kinds = append(kinds, el.Type)
	}
	want := []ElementType{
		ElementAction,
		ElementCharacter, ElementParenthetical, ElementDialogue,
		ElementAction,
		ElementCharacter, ElementDialogue,
		ElementTransition,
	}
	if len(kinds) != len(want) {
		t.Fatalf("elements = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("element %d = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestParseNoScenes(t *testing.T) {
	_, err := Parse([]byte("Just some prose with no headings.\n"))
	if !errors.Is(err, ErrNoScenes) {
		t.Errorf("err = %v, want ErrNoScenes", err)
	}
}

func TestParseAggregatesCharacters(t *testing.T) {
	sp, err := Parse([]byte(sampleScript))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"SARAH": true, "MARCUS": true, "MRS HALLORAN": true}
	for _, name := range sp.Characters {
		if !want[name] {
			t.Errorf("unexpected character %q", name)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("missing character %q", name)
	}
	if sp.WordCount == 0 {
		t.Error("word count not aggregated")
	}
}
