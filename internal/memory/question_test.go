package memory

import (
	"errors"
	"testing"
)

func TestQuestionLifecycle(t *testing.T) {
	l := NewLedger()
	id := l.Raise("Why is the briefcase locked?", 1, "indie_critic", WeightHigh, nil, "it holds the money")
	if id != "Q_001" {
		t.Errorf("ID = %q, want Q_001", id)
	}

	if err := l.Reference(id, 3); err != nil {
		t.Fatal(err)
	}
	if err := l.Resolve(id, "It held the evidence all along.", 5); err != nil {
		t.Fatal(err)
	}

	q, _ := l.Get(id)
	if q.Status != QuestionAnswered || q.AnsweredScene != 5 {
		t.Errorf("status = %s answered at %d, want answered at 5", q.Status, q.AnsweredScene)
	}

	// Terminal states reject further transitions.
	if err := l.Reference(id, 6); !errors.Is(err, ErrQuestionState) {
		t.Errorf("Reference on answered question: err = %v, want ErrQuestionState", err)
	}
	if err := l.Resolve(id, "again", 6); !errors.Is(err, ErrQuestionState) {
		t.Errorf("Resolve on answered question: err = %v, want ErrQuestionState", err)
	}
	if err := l.MarkIrrelevant(id, "moot", 6); !errors.Is(err, ErrQuestionState) {
		t.Errorf("MarkIrrelevant on answered question: err = %v, want ErrQuestionState", err)
	}
}

func TestUnknownQuestion(t *testing.T) {
	l := NewLedger()
	if err := l.Reference("Q_999", 1); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}

func TestUrgencyStepsAndCaps(t *testing.T) {
	l := NewLedger()
	id := l.Raise("Who sent the letter?", 1, "script_reader", WeightMedium, nil, "")

	q, _ := l.Get(id)
	if q.Urgency != 0.5 {
		t.Fatalf("initial urgency = %.2f, want 0.50", q.Urgency)
	}

	for scene := 2; scene <= 12; scene++ {
		if err := l.Reference(id, scene); err != nil {
			t.Fatal(err)
		}
	}
	q, _ = l.Get(id)
	if q.Urgency != 1.0 {
		t.Errorf("urgency after many references = %.2f, want capped 1.00", q.Urgency)
	}

	// Re-referencing within the same scene is a no-op.
	before := q.Urgency
	refs := len(q.References)
	if err := l.Reference(id, 12); err != nil {
		t.Fatal(err)
	}
	q, _ = l.Get(id)
	if q.Urgency != before || len(q.References) != refs {
		t.Errorf("same-scene re-reference changed state: urgency %.2f refs %d", q.Urgency, len(q.References))
	}
}

func TestQuestionImportanceGrowsWithReferences(t *testing.T) {
	l := NewLedger()
	id := l.Raise("What is Marcus hiding?", 1, "showrunner", WeightHigh, []string{"CHARACTER_002"}, "")

	entityImp := func(string) float64 { return 0.6 }

	l.Recompute(2, entityImp)
	q, _ := l.Get(id)
	early := q.Importance

	for scene := 2; scene <= 4; scene++ {
		if err := l.Reference(id, scene); err != nil {
			t.Fatal(err)
		}
	}
	l.Recompute(4, entityImp)
	q, _ = l.Get(id)
	if q.Importance <= early {
		t.Errorf("importance did not grow with references: %.3f -> %.3f", early, q.Importance)
	}
	if q.Importance > 1.0 {
		t.Errorf("importance %.3f exceeds 1.0", q.Importance)
	}
}

func TestActiveFiltersAndSorts(t *testing.T) {
	l := NewLedger()
	low := l.Raise("Minor detail?", 1, "a", WeightLow, nil, "")
	high := l.Raise("Central mystery?", 1, "a", WeightCritical, nil, "")
	l.Recompute(3, nil)

	active := l.Active(0.0)
	if len(active) != 2 {
		t.Fatalf("expected 2 active questions, got %d", len(active))
	}
	if active[0].ID != high {
		t.Errorf("expected %s first by importance, got %s", high, active[0].ID)
	}

	hq, _ := l.Get(high)
	filtered := l.Active(hq.Importance)
	if len(filtered) != 1 || filtered[0].ID != high {
		t.Errorf("floor did not exclude %s", low)
	}
}

func TestPruneBelowIsTerminal(t *testing.T) {
	l := NewLedger()
	id := l.Raise("Does the plant survive?", 1, "a", WeightLow, nil, "")
	l.Recompute(20, nil)

	pruned := l.PruneBelow(0.99, 20)
	if len(pruned) != 1 || pruned[0] != id {
		t.Fatalf("pruned = %v, want [%s]", pruned, id)
	}
	q, _ := l.Get(id)
	if q.Status != QuestionIrrelevant {
		t.Errorf("status = %s, want irrelevant", q.Status)
	}
	if err := l.Reference(id, 21); !errors.Is(err, ErrQuestionState) {
		t.Errorf("pruned question accepted a reference: %v", err)
	}
}
