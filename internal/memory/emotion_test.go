package memory

import (
	"errors"
	"strings"
	"testing"
)

func state(agent string, scene int, emotion string, intensity float64) EmotionalState {
	return EmotionalState{
		AgentID:        agent,
		SceneID:        scene,
		PrimaryEmotion: emotion,
		Intensity:      intensity,
		Engagement:     0.7,
	}
}

func TestAppendIsWriteOnce(t *testing.T) {
	l := NewEmotionalLedger()
	if err := l.Append(state("horror_fan", 1, "unease", 0.6)); err != nil {
		t.Fatal(err)
	}
	err := l.Append(state("horror_fan", 1, "boredom", 0.2))
	if !errors.Is(err, ErrDuplicateEmotionalAppend) {
		t.Fatalf("second append: err = %v, want ErrDuplicateEmotionalAppend", err)
	}

	// Same scene, different agent is fine.
	if err := l.Append(state("indie_critic", 1, "curiosity", 0.5)); err != nil {
		t.Fatal(err)
	}
}

func TestRevisePreservesOriginal(t *testing.T) {
	l := NewEmotionalLedger()
	if err := l.Append(state("horror_fan", 2, "sympathy", 0.7)); err != nil {
		t.Fatal(err)
	}

	revised := state("horror_fan", 2, "dread", 0.9)
	if err := l.Revise("horror_fan", 2, 5, "the twist recasts scene 2", revised); err != nil {
		t.Fatal(err)
	}

	orig, ok := l.Original("horror_fan", 2)
	if !ok || orig.PrimaryEmotion != "sympathy" || orig.Revised {
		t.Errorf("original mutated: %+v", orig)
	}
	cur, ok := l.State("horror_fan", 2)
	if !ok || cur.PrimaryEmotion != "dread" || !cur.Revised {
		t.Errorf("current view not revised: %+v", cur)
	}

	_, revs := l.History("horror_fan", 2)
	if len(revs) != 1 || revs[0].TriggerScene != 5 {
		t.Fatalf("history revisions = %+v, want one triggered by scene 5", revs)
	}
}

func TestReviseOrderAndPriorState(t *testing.T) {
	l := NewEmotionalLedger()
	if err := l.Append(state("horror_fan", 3, "tension", 0.6)); err != nil {
		t.Fatal(err)
	}

	err := l.Revise("horror_fan", 3, 3, "same scene", state("horror_fan", 3, "x", 0.5))
	if !errors.Is(err, ErrRevisionOrder) {
		t.Errorf("trigger == target: err = %v, want ErrRevisionOrder", err)
	}
	err = l.Revise("horror_fan", 5, 3, "backwards", state("horror_fan", 5, "x", 0.5))
	if !errors.Is(err, ErrRevisionOrder) {
		t.Errorf("trigger before target: err = %v, want ErrRevisionOrder", err)
	}
	err = l.Revise("horror_fan", 1, 4, "never recorded", state("horror_fan", 1, "x", 0.5))
	if !errors.Is(err, ErrNoPriorState) {
		t.Errorf("missing target: err = %v, want ErrNoPriorState", err)
	}
	err = l.Revise("newcomer", 3, 4, "unknown agent", state("newcomer", 3, "x", 0.5))
	if !errors.Is(err, ErrNoPriorState) {
		t.Errorf("unknown agent: err = %v, want ErrNoPriorState", err)
	}
}

func TestStackedRevisionsKeepFullHistory(t *testing.T) {
	l := NewEmotionalLedger()
	if err := l.Append(state("showrunner", 1, "mild interest", 0.4)); err != nil {
		t.Fatal(err)
	}
	if err := l.Revise("showrunner", 1, 4, "first rethink", state("showrunner", 1, "suspicion", 0.6)); err != nil {
		t.Fatal(err)
	}
	if err := l.Revise("showrunner", 1, 8, "second rethink", state("showrunner", 1, "awe", 0.9)); err != nil {
		t.Fatal(err)
	}

	orig, revs := l.History("showrunner", 1)
	if orig.PrimaryEmotion != "mild interest" {
		t.Errorf("original = %q", orig.PrimaryEmotion)
	}
	if len(revs) != 2 || revs[0].Reason != "first rethink" || revs[1].Reason != "second rethink" {
		t.Fatalf("revisions out of order: %+v", revs)
	}
	cur, _ := l.State("showrunner", 1)
	if cur.PrimaryEmotion != "awe" {
		t.Errorf("current = %q, want the latest revision", cur.PrimaryEmotion)
	}
}

func TestSnapshotReflectsCurrentView(t *testing.T) {
	l := NewEmotionalLedger()
	if err := l.Append(state("a", 2, "joy", 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(state("b", 2, "boredom", 0.3)); err != nil {
		t.Fatal(err)
	}
	if err := l.Revise("a", 2, 6, "rethought", state("a", 2, "grief", 0.8)); err != nil {
		t.Fatal(err)
	}

	snap := l.Snapshot(2)
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if snap["a"].PrimaryEmotion != "grief" {
		t.Errorf("agent a snapshot = %q, want revised view", snap["a"].PrimaryEmotion)
	}
	if snap["b"].PrimaryEmotion != "boredom" {
		t.Errorf("agent b snapshot = %q", snap["b"].PrimaryEmotion)
	}
}

func TestJourneyHighlightsIntensePeaks(t *testing.T) {
	l := NewEmotionalLedger()
	for scene, s := range []struct {
		emotion   string
		intensity float64
	}{{"curiosity", 0.4}, {"unease", 0.5}, {"terror", 0.95}, {"relief", 0.6}} {
		if err := l.Append(state("horror_fan", scene+1, s.emotion, s.intensity)); err != nil {
			t.Fatal(err)
		}
	}

	j := l.Journey("horror_fan", 4, 10)
	if !strings.Contains(j, "Scene 3 hit hard: terror") {
		t.Errorf("journey missing peak callout: %q", j)
	}
	if !strings.Contains(j, "curiosity -> unease -> relief") {
		t.Errorf("journey arc wrong: %q", j)
	}

	// A window of 1 sees only the latest scene.
	if j := l.Journey("horror_fan", 4, 1); strings.Contains(j, "terror") {
		t.Errorf("window 1 leaked older scenes: %q", j)
	}
	if j := l.Journey("nobody", 4, 10); j != "" {
		t.Errorf("unknown agent journey = %q, want empty", j)
	}
}
