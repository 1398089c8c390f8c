package review

import (
	"fmt"
	"strings"

	"tableread/internal/config"
)

// Profile describes one reviewer persona. Profiles are plain data; all
// behavior differences between reviewers come from the prompt the profile
// renders.
type Profile struct {
	ID         string
	Name       string
	Persona    string
	Priorities []string
	Quirks     []string
}

// BuiltinRoster returns the default table of reviewers used when the
// project config names none.
func BuiltinRoster() []Profile {
	return []Profile{
		{
			ID:      "blockbuster_fan",
			Name:    "Tyler",
			Persona: "A mainstream moviegoer who wants momentum, spectacle, and characters worth rooting for. Gets restless during long talky stretches.",
			Priorities: []string{
				"pacing and forward momentum",
				"clear stakes",
				"payoffs for setups",
			},
			Quirks: []string{"checks out when nothing has happened for two scenes"},
		},
		{
			ID:      "indie_critic",
			Name:    "Joan",
			Persona: "A festival critic who values subtext, formal ambition, and earned emotion. Suspicious of convenient plotting and on-the-nose dialogue.",
			Priorities: []string{
				"theme and subtext",
				"dialogue authenticity",
				"whether emotion is earned or asserted",
			},
			Quirks: []string{"flags any line a character would never actually say"},
		},
		{
			ID:      "horror_fan",
			Name:    "Mel",
			Persona: "A genre devotee who tracks dread, escalation, and rule consistency. Lives for the moment a safe scene curdles.",
			Priorities: []string{
				"tension and escalation",
				"internal rules of the threat",
				"atmosphere",
			},
			Quirks: []string{"notices when a scare breaks previously established rules"},
		},
		{
			ID:      "script_reader",
			Name:    "Priya",
			Persona: "A professional coverage reader doing their fortieth script this month. Efficient, structural, hard to impress, fair.",
			Priorities: []string{
				"structure and act turns",
				"character arc trajectory",
				"whether each scene earns its place",
			},
			Quirks: []string{"mentally drafts the logline from scene one"},
		},
		{
			ID:      "showrunner",
			Name:    "Dana",
			Persona: "A working showrunner reading for production reality and long-game storytelling. Thinks in seasons, budgets, and actor material.",
			Priorities: []string{
				"scenes actors will fight for",
				"sustainable character engines",
				"production feasibility",
			},
			Quirks: []string{"estimates the budget of every location change"},
		},
	}
}

// SelectRoster resolves the configured reviewer set: an optional roster file
// replaces the built-ins, and an explicit reviewer list filters by ID.
func SelectRoster(cfg *config.ProjectConfig) ([]Profile, error) {
	roster := BuiltinRoster()
	if cfg.RosterFile != "" {
		loaded, err := config.LoadRoster(cfg.RosterFile)
		if err != nil {
			return nil, err
		}
		roster = roster[:0]
		for _, p := range loaded.Profiles {
			roster = append(roster, Profile{
				ID:         p.ID,
				Name:       p.Name,
				Persona:    p.Persona,
				Priorities: p.Priorities,
				Quirks:     p.Quirks,
			})
		}
	}
	if len(cfg.Reviewers) == 0 {
		return roster, nil
	}

	byID := make(map[string]Profile, len(roster))
	for _, p := range roster {
		byID[strings.ToLower(p.ID)] = p
	}
	out := make([]Profile, 0, len(cfg.Reviewers))
	for _, id := range cfg.Reviewers {
		p, ok := byID[strings.ToLower(id)]
		if !ok {
			return nil, fmt.Errorf("unknown reviewer: %s", id)
		}
		out = append(out, p)
	}
	return out, nil
}

// Instructions renders the system prompt for this reviewer.
func (p Profile) Instructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a screenplay reviewer reading a script one scene at a time.\n\n%s\n", p.Name, p.Persona)
	if len(p.Priorities) > 0 {
		b.WriteString("\nYou care most about:\n")
		for _, pr := range p.Priorities {
			fmt.Fprintf(&b, "- %s\n", pr)
		}
	}
	for _, q := range p.Quirks {
		fmt.Fprintf(&b, "\nKnown habit: %s\n", q)
	}
	b.WriteString(`
React to the scene you are shown in character. Track your honest emotional
response, the questions the script is making you ask, and the characters you
are following. When a new scene changes how you feel about an earlier one,
say so explicitly as a revision. Respond only with the requested JSON.`)
	return b.String()
}
