package screenplay

type ElementType string

const (
	ElementAction        ElementType = "action"
	ElementCharacter     ElementType = "character"
	ElementDialogue      ElementType = "dialogue"
	ElementParenthetical ElementType = "parenthetical"
	ElementTransition    ElementType = "transition"
)

type Element struct {
	Type ElementType
	Text string
	Line int
}

// Scene is one ordered unit of the screenplay. Scenes are immutable once
// parsed; everything downstream holds references, never copies-for-mutation.
type Scene struct {
	ID               int // 1-based ordinal, also the scene's position
	Heading          string
	Location         string
	TimeOfDay        string
	InteriorExterior string

	Elements []Element
	Text     string

	CharactersPresent  []string
	CharactersSpeaking []string
	Objects            []string

	WordCount int
	IsLast    bool
}

// SpeakingLines returns the number of dialogue lines delivered by name.
func (s Scene) SpeakingLines(name string) int {
	count := 0
	current := ""
	for _, el := range s.Elements {
		switch el.Type {
		case ElementCharacter:
			current = el.Text
		case ElementDialogue:
			if current == name {
				count++
			}
		}
	}
	return count
}

// DialogueCount returns the total number of dialogue lines in the scene.
func (s Scene) DialogueCount() int {
	count := 0
	for _, el := range s.Elements {
		if el.Type == ElementDialogue {
			count++
		}
	}
	return count
}

type Screenplay struct {
	Title     string
	Author    string
	DraftDate string

	Scenes     []Scene
	Characters []string
	WordCount  int
}

func (sp *Screenplay) SceneByID(id int) (Scene, bool) {
	for _, s := range sp.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}
