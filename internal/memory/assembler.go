package memory

import (
	"fmt"
	"strings"

	"tableread/internal/screenplay"
)

// Context is the fully assembled prompt context for one agent reviewing one
// scene. Render produces the text handed to the model.
type Context struct {
	AgentID      string
	Scene        screenplay.Scene
	Recent       []screenplay.Scene
	Digests      []Digest
	Entities     []Entity
	Questions    []Question
	Journey      string
	SceneOfTotal string
}

// AssemblerInput carries everything Assemble reads. Assemble itself holds no
// state and performs no mutation, so the same input always yields the same
// context regardless of which agents run first.
type AssemblerInput struct {
	AgentID      string
	Scene        screenplay.Scene
	Recent       []screenplay.Scene
	Digests      []Digest
	Entities     []Entity
	Questions    []Question
	Journey      string
	TotalScenes  int
}

func Assemble(in AssemblerInput) Context {
	return Context{
		AgentID:      in.AgentID,
		Scene:        in.Scene,
		Recent:       in.Recent,
		Digests:      in.Digests,
		Entities:     in.Entities,
		Questions:    in.Questions,
		Journey:      in.Journey,
		SceneOfTotal: fmt.Sprintf("Scene %d of %d", in.Scene.ID, in.TotalScenes),
	}
}

// Render lays the context out in fixed sections. Empty sections are omitted
// entirely rather than rendered with placeholder text.
func (c Context) Render() string {
	var b strings.Builder

	if len(c.Digests) > 0 {
		b.WriteString("EARLIER IN THE SCRIPT:\n")
		for _, d := range c.Digests {
			fmt.Fprintf(&b, "- Scene %d (%s): %s", d.SceneID, d.Heading, d.Summary)
			if len(d.PlotBeats) > 0 {
				fmt.Fprintf(&b, " Beats: %s.", strings.Join(d.PlotBeats, "; "))
			}
			if s, ok := d.EmotionalSnapshot[c.AgentID]; ok {
				fmt.Fprintf(&b, " You felt %s (%.1f).", s.PrimaryEmotion, s.Intensity)
			}
			for _, rs := range d.RevisedSnapshots {
				if rs.AgentID == c.AgentID {
					fmt.Fprintf(&b, " In hindsight: %s (%.1f).", rs.State.PrimaryEmotion, rs.State.Intensity)
				}
			}
			for _, note := range d.RevisionNotes {
				fmt.Fprintf(&b, " [%s]", note)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(c.Recent) > 0 {
		b.WriteString("RECENT SCENES:\n")
		for _, s := range c.Recent {
			fmt.Fprintf(&b, "--- Scene %d: %s ---\n%s\n", s.ID, s.Heading, s.Text)
		}
		b.WriteString("\n")
	}

	if len(c.Entities) > 0 {
		b.WriteString("KEY CHARACTERS:\n")
		for _, e := range c.Entities {
			fmt.Fprintf(&b, "- %s", e.Name)
			if len(e.Aliases) > 0 {
				fmt.Fprintf(&b, " (aka %s)", strings.Join(e.Aliases, ", "))
			}
			if e.Description != "" {
				fmt.Fprintf(&b, ": %s", e.Description)
			}
			if len(e.KeyMoments) > 0 {
				last := e.KeyMoments[len(e.KeyMoments)-1]
				fmt.Fprintf(&b, " Most recently: %s (scene %d).", last.Description, last.SceneID)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(c.Questions) > 0 {
		b.WriteString("QUESTIONS YOU'VE BEEN TRACKING:\n")
		for _, q := range c.Questions {
			fmt.Fprintf(&b, "- [%s] %s (raised scene %d", q.ID, q.Text, q.RaisedScene)
			if n := len(q.References); n > 1 {
				fmt.Fprintf(&b, ", touched %d times", n)
			}
			b.WriteString(")")
			if q.Speculation != "" {
				fmt.Fprintf(&b, " Your guess: %s", q.Speculation)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if c.Journey != "" {
		b.WriteString("HOW YOU'VE BEEN FEELING:\n")
		b.WriteString(c.Journey)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "NOW READ %s:\n--- %s ---\n%s\n", strings.ToUpper(c.SceneOfTotal), c.Scene.Heading, c.Scene.Text)
	return b.String()
}
