package memory

import (
	"fmt"
	"sort"
	"sync"
)

type QuestionStatus string

const (
	QuestionOpen       QuestionStatus = "open"
	QuestionAnswered   QuestionStatus = "answered"
	QuestionIrrelevant QuestionStatus = "irrelevant"
)

type NarrativeWeight string

const (
	WeightCritical NarrativeWeight = "critical"
	WeightHigh     NarrativeWeight = "high"
	WeightMedium   NarrativeWeight = "medium"
	WeightLow      NarrativeWeight = "low"
)

func narrativeWeightScore(w NarrativeWeight) float64 {
	switch w {
	case WeightCritical:
		return 0.30
	case WeightHigh:
		return 0.20
	case WeightMedium:
		return 0.10
	case WeightLow:
		return 0.05
	default:
		return 0.10
	}
}

type Question struct {
	ID          string
	Text        string
	RaisedScene int
	RaisedBy    string

	Status          QuestionStatus
	References      []int
	RelatedEntities []string
	Weight          NarrativeWeight
	Urgency         float64
	Importance      float64
	Speculation     string

	Answer           string
	AnsweredScene    int
	IrrelevantScene  int
	IrrelevantReason string
}

func (q Question) LastReference() int {
	if len(q.References) == 0 {
		return q.RaisedScene
	}
	return q.References[len(q.References)-1]
}

// Question importance formula weights.
const (
	questionRefWeight      = 0.25
	questionAgeWeight      = 0.15
	questionEntityWeight   = 0.15
	questionUrgencyWeight  = 0.15
	questionRecencyBonus   = 0.10
	questionRefNorm        = 5.0
	initialUrgency         = 0.5
	urgencyStep            = 0.1
)

// Ledger tracks narrative questions across the whole run. Questions are never
// physically deleted; answered and irrelevant are terminal states kept for
// audit, and attempting to leave them is an error.
type Ledger struct {
	mu        sync.RWMutex
	questions map[string]*Question
	order     []string
	counter   int
}

func NewLedger() *Ledger {
	return &Ledger{questions: make(map[string]*Question)}
}

func (l *Ledger) Raise(text string, sceneID int, agentID string, weight NarrativeWeight, entities []string, speculation string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counter++
	id := fmt.Sprintf("Q_%03d", l.counter)
	if weight == "" {
		weight = WeightMedium
	}
	q := &Question{
		ID:              id,
		Text:            text,
		RaisedScene:     sceneID,
		RaisedBy:        agentID,
		Status:          QuestionOpen,
		References:      []int{sceneID},
		RelatedEntities: append([]string(nil), entities...),
		Weight:          weight,
		Urgency:         initialUrgency,
		Speculation:     speculation,
	}
	l.questions[id] = q
	l.order = append(l.order, id)
	return id
}

// Reference marks the question as touched in a scene. Each re-reference of a
// still-open question raises its urgency by a fixed step, capped at 1.0, so
// urgency is monotonic while the question stays open.
func (l *Ledger) Reference(id string, sceneID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.questions[id]
	if !ok {
		return fmt.Errorf("reference %s: %w", id, ErrUnknownQuestion)
	}
	if q.Status != QuestionOpen {
		return fmt.Errorf("reference %s (%s): %w", id, q.Status, ErrQuestionState)
	}
	for _, s := range q.References {
		if s == sceneID {
			return nil
		}
	}
	q.References = append(q.References, sceneID)
	q.Urgency = q.Urgency + urgencyStep
	if q.Urgency > 1.0 {
		q.Urgency = 1.0
	}
	return nil
}

func (l *Ledger) Resolve(id, answer string, sceneID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.questions[id]
	if !ok {
		return fmt.Errorf("resolve %s: %w", id, ErrUnknownQuestion)
	}
	if q.Status != QuestionOpen {
		return fmt.Errorf("resolve %s (%s): %w", id, q.Status, ErrQuestionState)
	}
	q.Status = QuestionAnswered
	q.Answer = answer
	q.AnsweredScene = sceneID
	return nil
}

func (l *Ledger) MarkIrrelevant(id, reason string, sceneID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.questions[id]
	if !ok {
		return fmt.Errorf("mark irrelevant %s: %w", id, ErrUnknownQuestion)
	}
	if q.Status != QuestionOpen {
		return fmt.Errorf("mark irrelevant %s (%s): %w", id, q.Status, ErrQuestionState)
	}
	q.Status = QuestionIrrelevant
	q.IrrelevantReason = reason
	q.IrrelevantScene = sceneID
	return nil
}

func (l *Ledger) Get(id string) (Question, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.questions[id]
	if !ok {
		return Question{}, false
	}
	return q.clone(), true
}

// Active returns open questions at or above the importance floor, most
// important first, ties broken by raise order.
func (l *Ledger) Active(minImportance float64) []Question {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Question
	for _, id := range l.order {
		q := l.questions[id]
		if q.Status == QuestionOpen && q.Importance >= minImportance {
			out = append(out, q.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

func (l *Ledger) ByStatus(status QuestionStatus) []Question {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Question
	for _, id := range l.order {
		if q := l.questions[id]; q.Status == status {
			out = append(out, q.clone())
		}
	}
	return out
}

func (l *Ledger) All() []Question {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Question, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.questions[id].clone())
	}
	return out
}

// RaisedIn and ResolvedIn report questions whose lifecycle touched a scene;
// the compressor turns these into plot beats.
func (l *Ledger) RaisedIn(sceneID int) []Question {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Question
	for _, id := range l.order {
		if q := l.questions[id]; q.RaisedScene == sceneID {
			out = append(out, q.clone())
		}
	}
	return out
}

func (l *Ledger) ResolvedIn(sceneID int) []Question {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Question
	for _, id := range l.order {
		if q := l.questions[id]; q.Status == QuestionAnswered && q.AnsweredScene == sceneID {
			out = append(out, q.clone())
		}
	}
	return out
}

// Recompute re-derives importance for every open question at the current
// scene. entityImportance resolves a related entity ID to its current
// importance; the registry's Importance method satisfies it.
func (l *Ledger) Recompute(currentScene int, entityImportance func(id string) float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range l.order {
		q := l.questions[id]
		if q.Status != QuestionOpen {
			continue
		}

		score := clamp01(float64(len(q.References))/questionRefNorm) * questionRefWeight
		if currentScene > 0 && currentScene > q.RaisedScene {
			score += clamp01(float64(currentScene-q.RaisedScene)/float64(currentScene)) * questionAgeWeight
		}
		score += narrativeWeightScore(q.Weight)

		maxEntity := 0.0
		if entityImportance != nil {
			for _, eid := range q.RelatedEntities {
				if imp := entityImportance(eid); imp > maxEntity {
					maxEntity = imp
				}
			}
		}
		score += maxEntity * questionEntityWeight
		score += q.Urgency * questionUrgencyWeight
		if currentScene-q.LastReference() < recencyWindow {
			score += questionRecencyBonus
		}
		q.Importance = clamp01(score)
	}
}

// PruneBelow marks open questions under the threshold irrelevant. This is an
// explicit maintenance operation, never run implicitly, because the
// transition is terminal.
func (l *Ledger) PruneBelow(threshold float64, sceneID int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pruned []string
	for _, id := range l.order {
		q := l.questions[id]
		if q.Status == QuestionOpen && q.Importance < threshold {
			q.Status = QuestionIrrelevant
			q.IrrelevantReason = "low importance"
			q.IrrelevantScene = sceneID
			pruned = append(pruned, id)
		}
	}
	return pruned
}

// RelatedEntitySet collects every entity referenced by an active question;
// the registry's conditional retention band consults it.
func (l *Ledger) RelatedEntitySet(minImportance float64) map[string]bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := make(map[string]bool)
	for _, id := range l.order {
		q := l.questions[id]
		if q.Status != QuestionOpen || q.Importance < minImportance {
			continue
		}
		for _, eid := range q.RelatedEntities {
			set[eid] = true
		}
	}
	return set
}

func (q *Question) clone() Question {
	c := *q
	c.References = append([]int(nil), q.References...)
	c.RelatedEntities = append([]string(nil), q.RelatedEntities...)
	return c
}
