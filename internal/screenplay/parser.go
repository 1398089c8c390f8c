package screenplay

import (
	"errors"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrNoScenes = errors.New("no scene headings found")
)

var (
	headingPattern    = regexp.MustCompile(`(?i)^(INT\./EXT\.|INT/EXT|I/E|INT|EXT|EST)[.\s]+(.+?)(?:\s+-\s+([A-Za-z. ]+))?$`)
	characterPattern  = regexp.MustCompile(`^([A-Z][A-Z\s\-.]+?)(\s*\(.*\))?$`)
	transitionPattern = regexp.MustCompile(`^[A-Z\s]+TO:\s*$`)
	cueSuffixPattern  = regexp.MustCompile(`(?i)\s*\((V\.O\.|O\.S\.|CONT'D)\)\s*$`)
	capsRunPattern    = regexp.MustCompile(`\b([A-Z][A-Z\-]+(?:\s+[A-Z][A-Z\-]+)*)\b`)
)

// Words that show up in all caps without naming a character or object.
var capsStopwords = map[string]bool{
	"INT": true, "EXT": true, "EST": true, "DAY": true, "NIGHT": true,
	"CONTINUOUS": true, "LATER": true, "THE": true, "A": true, "AN": true,
	"MORNING": true, "EVENING": true, "DUSK": true, "DAWN": true,
}

var titlePageKeys = map[string]bool{
	"title": true, "credit": true, "author": true, "authors": true,
	"source": true, "draft date": true, "date": true, "contact": true,
	"copyright": true,
}

func ParseFile(path string) (*Screenplay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse reads Fountain-style screenplay text into ordered scenes. Scene IDs
// are assigned in document order starting at 1 and the final scene is flagged
// IsLast, which is the ordering contract the review pipeline relies on.
func Parse(content []byte) (*Screenplay, error) {
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")

	meta, body := splitTitlePage(lines)

	var groups [][]string
	var current []string
	for _, line := range body {
		if headingPattern.MatchString(strings.TrimSpace(line)) {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = []string{line}
			continue
		}
		if len(current) > 0 || strings.TrimSpace(line) != "" {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	var scenes []Scene
	for _, group := range groups {
		scene, ok := parseScene(len(scenes)+1, group)
		if !ok {
			continue
		}
		scenes = append(scenes, scene)
	}
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	scenes[len(scenes)-1].IsLast = true

	characters := map[string]bool{}
	words := 0
	for _, s := range scenes {
		for _, name := range s.CharactersPresent {
			characters[name] = true
		}
		words += s.WordCount
	}
	names := make([]string, 0, len(characters))
	for name := range characters {
		names = append(names, name)
	}
	sort.Strings(names)

	author := meta["author"]
	if author == "" {
		author = meta["authors"]
	}
	draft := meta["draft date"]
	if draft == "" {
		draft = meta["date"]
	}

	return &Screenplay{
		Title:      meta["title"],
		Author:     author,
		DraftDate:  draft,
		Scenes:     scenes,
		Characters: names,
		WordCount:  words,
	}, nil
}

// splitTitlePage consumes key: value metadata lines until the first scene
// heading or an === marker, returning the metadata and the remaining lines.
func splitTitlePage(lines []string) (map[string]string, []string) {
	meta := map[string]string{}
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "===") {
			return meta, lines[i+1:]
		}
		if headingPattern.MatchString(stripped) {
			return meta, lines[i:]
		}
		if key, value, found := strings.Cut(line, ":"); found {
			k := strings.ToLower(strings.TrimSpace(key))
			if titlePageKeys[k] {
				meta[k] = strings.TrimSpace(value)
			}
		}
	}
	return meta, nil
}

func parseScene(id int, lines []string) (Scene, bool) {
	heading := strings.TrimSpace(lines[0])
	match := headingPattern.FindStringSubmatch(heading)
	if match == nil {
		return Scene{}, false
	}

	scene := Scene{
		ID:               id,
		Heading:          heading,
		InteriorExterior: strings.ToUpper(strings.TrimRight(match[1], ".")),
		Location:         strings.TrimSpace(match[2]),
		TimeOfDay:        strings.ToUpper(strings.TrimSpace(match[3])),
	}

	present := map[string]bool{}
	speaking := map[string]bool{}
	objects := map[string]bool{}
	textParts := []string{heading}

	i := 1
	for i < len(lines) {
		stripped := strings.TrimSpace(lines[i])
		if stripped == "" {
			i++
			continue
		}

		switch {
		case isCharacterCue(stripped):
			name := characterName(stripped)
			scene.Elements = append(scene.Elements, Element{Type: ElementCharacter, Text: name, Line: i})
			present[name] = true
			speaking[name] = true
			textParts = append(textParts, stripped)
			i++
			// Parenthetical and dialogue lines run until a blank line or a
			// new cue/heading.
			for i < len(lines) {
				next := strings.TrimSpace(lines[i])
				if next == "" {
					i++
					break
				}
				if strings.HasPrefix(next, "(") && strings.HasSuffix(next, ")") {
					scene.Elements = append(scene.Elements, Element{Type: ElementParenthetical, Text: next, Line: i})
					textParts = append(textParts, next)
					i++
					continue
				}
				if isCharacterCue(next) || headingPattern.MatchString(next) {
					break
				}
				scene.Elements = append(scene.Elements, Element{Type: ElementDialogue, Text: next, Line: i})
				textParts = append(textParts, next)
				i++
			}

		case transitionPattern.MatchString(stripped):
			scene.Elements = append(scene.Elements, Element{Type: ElementTransition, Text: stripped, Line: i})
			textParts = append(textParts, stripped)
			i++

		default:
			scene.Elements = append(scene.Elements, Element{Type: ElementAction, Text: stripped, Line: i})
			textParts = append(textParts, stripped)
			for _, run := range capsRuns(stripped) {
				present[run] = true
			}
			i++
		}
	}

	// Multi-word all-caps runs in action lines that never speak are treated
	// as emphasized objects ("THE LETTER OPENER"); single names stay as
	// non-speaking characters present in the scene.
	for name := range present {
		if !speaking[name] && looksLikeObject(name) {
			objects[name] = true
			delete(present, name)
		}
	}

	scene.Text = strings.Join(textParts, "\n")
	scene.WordCount = len(strings.Fields(scene.Text))
	scene.CharactersPresent = sortedKeys(present)
	scene.CharactersSpeaking = sortedKeys(speaking)
	scene.Objects = sortedKeys(objects)
	return scene, true
}

func isCharacterCue(line string) bool {
	if headingPattern.MatchString(line) || transitionPattern.MatchString(line) {
		return false
	}
	if len(line) > 40 {
		return false
	}
	return characterPattern.MatchString(line)
}

func characterName(line string) string {
	match := characterPattern.FindStringSubmatch(line)
	if match == nil {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(cueSuffixPattern.ReplaceAllString(match[1], ""))
}

func capsRuns(action string) []string {
	var runs []string
	for _, match := range capsRunPattern.FindAllString(action, -1) {
		match = strings.TrimSpace(match)
		if len(match) < 2 || capsStopwords[match] {
			continue
		}
		runs = append(runs, match)
	}
	return runs
}

func looksLikeObject(name string) bool {
	if !strings.Contains(name, " ") {
		return false
	}
	for _, honorific := range []string{"MR ", "MRS ", "DR ", "MS "} {
		if strings.HasPrefix(name, honorific) {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
