package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"tableread/internal/memory"
	"tableread/internal/screenplay"
)

type fakeCaller struct {
	mu    sync.Mutex
	calls int
	// malformedFor counts remaining malformed replies per agent.
	malformedFor map[string]int
	respond      func(profile Profile, prompt string) AgentResponse
}

func (f *fakeCaller) Review(_ context.Context, profile Profile, prompt string) (AgentResponse, string, error) {
	f.mu.Lock()
	f.calls++
	remaining := f.malformedFor[profile.ID]
	if remaining > 0 {
		f.malformedFor[profile.ID] = remaining - 1
	}
	f.mu.Unlock()

	if remaining > 0 {
		return AgentResponse{}, "not json at all", &MalformedOutputError{AgentID: profile.ID, Raw: "not json at all", Err: errors.New("bad")}
	}
	if f.respond != nil {
		return f.respond(profile, prompt), "{}", nil
	}
	return AgentResponse{
		Reaction:       "fine",
		EmotionalState: ReportedEmotion{PrimaryEmotion: "interest", Intensity: 0.5, Engagement: 0.6},
	}, "{}", nil
}

func testScript(n int) *screenplay.Screenplay {
	sp := &screenplay.Screenplay{Title: "Test Script"}
	for i := 1; i <= n; i++ {
		sp.Scenes = append(sp.Scenes, screenplay.Scene{
			ID:                 i,
			Heading:            "INT. ROOM - DAY",
			Location:           "ROOM",
			Text:               "Sarah waits.",
			CharactersPresent:  []string{"SARAH"},
			CharactersSpeaking: []string{"SARAH"},
		})
	}
	return sp
}

func twoReviewers() []Profile {
	return []Profile{
		{ID: "horror_fan", Name: "Mel", Persona: "dread"},
		{ID: "indie_critic", Name: "Joan", Persona: "subtext"},
	}
}

func TestRunFansOutAndIngests(t *testing.T) {
	eng := memory.NewEngine(memory.Options{BufferSize: 2}, 3, nil)
	runner := NewRunner(eng, &fakeCaller{}, twoReviewers(), nil)

	report, err := runner.Run(context.Background(), testScript(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Scenes) != 3 {
		t.Fatalf("scenes in report = %d, want 3", len(report.Scenes))
	}
	for _, agent := range []string{"horror_fan", "indie_critic"} {
		for scene := 1; scene <= 3; scene++ {
			if _, ok := eng.Emotions.State(agent, scene); !ok {
				t.Errorf("no emotional state for %s scene %d", agent, scene)
			}
		}
	}
	if len(report.Summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(report.Summaries))
	}
	if report.Summaries[0].ScenesReviewed != 3 {
		t.Errorf("scenes reviewed = %d, want 3", report.Summaries[0].ScenesReviewed)
	}
}

func TestMalformedOutputRetriedOnce(t *testing.T) {
	caller := &fakeCaller{malformedFor: map[string]int{"horror_fan": 1}}
	eng := memory.NewEngine(memory.Options{}, 1, nil)
	runner := NewRunner(eng, caller, twoReviewers(), nil)

	report, err := runner.Run(context.Background(), testScript(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Incomplete) != 0 {
		t.Fatalf("one malformed reply should be corrected, got incomplete: %+v", report.Incomplete)
	}
	// Two reviewers, plus one corrective retry.
	if caller.calls != 3 {
		t.Errorf("calls = %d, want 3", caller.calls)
	}
}

func TestRepeatedMalformedOutputSkipsReview(t *testing.T) {
	caller := &fakeCaller{malformedFor: map[string]int{"horror_fan": 2}}
	eng := memory.NewEngine(memory.Options{}, 2, nil)
	runner := NewRunner(eng, caller, twoReviewers(), nil)

	report, err := runner.Run(context.Background(), testScript(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Incomplete) != 1 {
		t.Fatalf("incomplete = %+v, want exactly one", report.Incomplete)
	}
	inc := report.Incomplete[0]
	if inc.AgentID != "horror_fan" || inc.SceneID != 1 || inc.Raw == "" {
		t.Errorf("incomplete record wrong: %+v", inc)
	}
	// The other reviewer's scene 1 state landed, and the skipped reviewer
	// resumed at scene 2.
	if _, ok := eng.Emotions.State("indie_critic", 1); !ok {
		t.Error("healthy reviewer's state missing")
	}
	if _, ok := eng.Emotions.State("horror_fan", 1); ok {
		t.Error("skipped review left a state behind")
	}
	if _, ok := eng.Emotions.State("horror_fan", 2); !ok {
		t.Error("skipped reviewer did not resume next scene")
	}
}

func TestResponsesFlowIntoLedgers(t *testing.T) {
	caller := &fakeCaller{respond: func(profile Profile, _ string) AgentResponse {
		resp := AgentResponse{
			Reaction:       "hooked",
			EmotionalState: ReportedEmotion{PrimaryEmotion: "curiosity", Intensity: 0.7, Engagement: 0.8},
		}
		if profile.ID == "horror_fan" {
			resp.QuestionsRaised = []RaisedQuestion{{
				Text:            "What is in the basement?",
				NarrativeWeight: "high",
				RelatedEntities: []string{"SARAH"},
			}}
			resp.EntityObservations = []EntityObservation{{
				Name:        "SARAH",
				Description: "The tenant who hears the noises",
				KeyMoment:   "hears scratching below the floor",
				KeyMomentSignificance: "high",
			}}
		}
		return resp
	}}

	eng := memory.NewEngine(memory.Options{}, 1, nil)
	runner := NewRunner(eng, caller, twoReviewers(), nil)
	if _, err := runner.Run(context.Background(), testScript(1)); err != nil {
		t.Fatal(err)
	}

	open := eng.QuestionsByStatus(memory.QuestionOpen)
	if len(open) != 1 || open[0].Text != "What is in the basement?" {
		t.Fatalf("ledger questions = %+v", open)
	}
	if open[0].RaisedBy != "horror_fan" {
		t.Errorf("raised by %q", open[0].RaisedBy)
	}
	sarah, ok := eng.Entity("SARAH")
	if !ok {
		t.Fatal("SARAH not registered")
	}
	if sarah.Description == "" || len(sarah.KeyMoments) != 1 {
		t.Errorf("observations not applied: %+v", sarah)
	}
}

func TestRunRejectsEmptyScript(t *testing.T) {
	eng := memory.NewEngine(memory.Options{}, 0, nil)
	runner := NewRunner(eng, &fakeCaller{}, twoReviewers(), nil)
	_, err := runner.Run(context.Background(), &screenplay.Screenplay{})
	if !errors.Is(err, screenplay.ErrNoScenes) {
		t.Errorf("err = %v, want ErrNoScenes", err)
	}
}

func TestInstructionsCarryPersona(t *testing.T) {
	p := BuiltinRoster()[0]
	got := p.Instructions()
	if !strings.Contains(got, p.Name) || !strings.Contains(got, "one scene at a time") {
		t.Errorf("instructions missing persona framing: %q", got)
	}
}
