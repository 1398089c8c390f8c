package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type Investment string

const (
	InvestmentRooting    Investment = "rooting_for"
	InvestmentSuspicious Investment = "suspicious_of"
	InvestmentWorried    Investment = "worried_about"
	InvestmentIndifferent Investment = "indifferent"
	InvestmentAnnoyed    Investment = "annoyed_by"
)

// EmotionalState is one agent's reaction to one scene. Once appended to the
// ledger it is never mutated; later revisions are separate events layered on
// top of it.
type EmotionalState struct {
	AgentID             string                `json:"agent_id"`
	SceneID             int                   `json:"scene_id"`
	PrimaryEmotion      string                `json:"primary_emotion"`
	Intensity           float64               `json:"intensity"`
	SecondaryEmotions   []string              `json:"secondary_emotions,omitempty"`
	Trajectory          string                `json:"trajectory,omitempty"`
	Engagement          float64               `json:"engagement"`
	CharacterInvestment map[string]Investment `json:"character_investment,omitempty"`
	CumulativeFeelings  string                `json:"cumulative_feelings,omitempty"`
	Revised             bool                  `json:"revised,omitempty"`
	RecordedAt          time.Time             `json:"recorded_at"`
}

// Revision reinterprets an earlier scene's emotional state in light of a
// later one. The original state is preserved untouched.
type Revision struct {
	AgentID       string         `json:"agent_id"`
	TargetScene   int            `json:"target_scene"`
	TriggerScene  int            `json:"trigger_scene"`
	Reason        string         `json:"reason"`
	RevisedState  EmotionalState `json:"revised_state"`
	RecordedAt    time.Time      `json:"recorded_at"`
}

type entryKind int

const (
	entryState entryKind = iota
	entryRevision
)

type entry struct {
	kind     entryKind
	state    EmotionalState
	revision Revision
}

// EmotionalLedger is an append-only log of per-agent emotional events plus a
// current-view index. The log is the source of truth; the index exists so
// reads do not replay the log.
type EmotionalLedger struct {
	mu  sync.RWMutex
	log []entry

	// current[agent][scene] points at the log entry holding the latest view
	// of that scene, original[agent][scene] at the write-once original.
	current  map[string]map[int]int
	original map[string]map[int]int
	scenes   map[string][]int

	now func() time.Time
}

func NewEmotionalLedger() *EmotionalLedger {
	return &EmotionalLedger{
		current:  make(map[string]map[int]int),
		original: make(map[string]map[int]int),
		scenes:   make(map[string][]int),
		now:      time.Now,
	}
}

// Append records an agent's first and only direct reaction to a scene. A
// second append for the same (agent, scene) pair is rejected; changes after
// the fact must go through Revise.
func (l *EmotionalLedger) Append(state EmotionalState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if byScene, ok := l.original[state.AgentID]; ok {
		if _, dup := byScene[state.SceneID]; dup {
			return fmt.Errorf("agent %s scene %d: %w", state.AgentID, state.SceneID, ErrDuplicateEmotionalAppend)
		}
	}

	state.Revised = false
	state.RecordedAt = l.now()
	idx := len(l.log)
	l.log = append(l.log, entry{kind: entryState, state: state})

	if l.original[state.AgentID] == nil {
		l.original[state.AgentID] = make(map[int]int)
		l.current[state.AgentID] = make(map[int]int)
	}
	l.original[state.AgentID][state.SceneID] = idx
	l.current[state.AgentID][state.SceneID] = idx
	l.scenes[state.AgentID] = insertSorted(l.scenes[state.AgentID], state.SceneID)
	return nil
}

// Revise records a retroactive reinterpretation of targetScene triggered by
// triggerScene. The trigger must be strictly later than the target, and the
// target must already have a recorded state.
func (l *EmotionalLedger) Revise(agentID string, targetScene, triggerScene int, reason string, revised EmotionalState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if triggerScene <= targetScene {
		return fmt.Errorf("agent %s: trigger scene %d, target scene %d: %w", agentID, triggerScene, targetScene, ErrRevisionOrder)
	}
	byScene, ok := l.original[agentID]
	if !ok {
		return fmt.Errorf("agent %s scene %d: %w", agentID, targetScene, ErrNoPriorState)
	}
	if _, ok := byScene[targetScene]; !ok {
		return fmt.Errorf("agent %s scene %d: %w", agentID, targetScene, ErrNoPriorState)
	}

	revised.AgentID = agentID
	revised.SceneID = targetScene
	revised.Revised = true
	revised.RecordedAt = l.now()
	rev := Revision{
		AgentID:      agentID,
		TargetScene:  targetScene,
		TriggerScene: triggerScene,
		Reason:       reason,
		RevisedState: revised,
		RecordedAt:   revised.RecordedAt,
	}
	idx := len(l.log)
	l.log = append(l.log, entry{kind: entryRevision, revision: rev})
	l.current[agentID][targetScene] = idx
	return nil
}

// State returns the latest view of an agent's reaction to a scene, revisions
// applied.
func (l *EmotionalLedger) State(agentID string, sceneID int) (EmotionalState, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	byScene, ok := l.current[agentID]
	if !ok {
		return EmotionalState{}, false
	}
	idx, ok := byScene[sceneID]
	if !ok {
		return EmotionalState{}, false
	}
	return l.stateAt(idx), true
}

// Original returns the write-once state as first recorded, ignoring any
// revisions.
func (l *EmotionalLedger) Original(agentID string, sceneID int) (EmotionalState, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	byScene, ok := l.original[agentID]
	if !ok {
		return EmotionalState{}, false
	}
	idx, ok := byScene[sceneID]
	if !ok {
		return EmotionalState{}, false
	}
	return cloneState(l.log[idx].state), true
}

// History returns every event touching (agent, scene) in recorded order: the
// original state followed by each revision.
func (l *EmotionalLedger) History(agentID string, sceneID int) (EmotionalState, []Revision) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byScene, ok := l.original[agentID]
	if !ok {
		return EmotionalState{}, nil
	}
	idx, ok := byScene[sceneID]
	if !ok {
		return EmotionalState{}, nil
	}
	orig := cloneState(l.log[idx].state)

	var revs []Revision
	for _, e := range l.log {
		if e.kind == entryRevision && e.revision.AgentID == agentID && e.revision.TargetScene == sceneID {
			revs = append(revs, cloneRevision(e.revision))
		}
	}
	return orig, revs
}

// Revisions returns every revision an agent has made, in recorded order.
func (l *EmotionalLedger) Revisions(agentID string) []Revision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var revs []Revision
	for _, e := range l.log {
		if e.kind == entryRevision && e.revision.AgentID == agentID {
			revs = append(revs, cloneRevision(e.revision))
		}
	}
	return revs
}

// RevisionsTargeting returns revisions against a scene across all agents;
// digest annotation uses it.
func (l *EmotionalLedger) RevisionsTargeting(sceneID int) []Revision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var revs []Revision
	for _, e := range l.log {
		if e.kind == entryRevision && e.revision.TargetScene == sceneID {
			revs = append(revs, cloneRevision(e.revision))
		}
	}
	return revs
}

// Snapshot returns every agent's current view of a scene, keyed by agent ID.
// Digest construction copies this verbatim so emotional detail survives
// compression.
func (l *EmotionalLedger) Snapshot(sceneID int) map[string]EmotionalState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]EmotionalState)
	for agent, byScene := range l.current {
		if idx, ok := byScene[sceneID]; ok {
			out[agent] = l.stateAt(idx)
		}
	}
	return out
}

// Journey summarizes how an agent has been feeling over the trailing window
// of scenes. High-intensity moments are called out individually; the rest
// fold into the arc line.
func (l *EmotionalLedger) Journey(agentID string, upToScene, window int) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byScene, ok := l.current[agentID]
	if !ok || len(byScene) == 0 {
		return ""
	}

	var picked []EmotionalState
	for _, sceneID := range l.scenes[agentID] {
		if sceneID > upToScene {
			break
		}
		if upToScene-sceneID >= window {
			continue
		}
		picked = append(picked, l.stateAt(byScene[sceneID]))
	}
	if len(picked) == 0 {
		return ""
	}

	var b strings.Builder
	var arc []string
	for _, s := range picked {
		if s.Intensity > 0.8 {
			fmt.Fprintf(&b, "Scene %d hit hard: %s (intensity %.1f)", s.SceneID, s.PrimaryEmotion, s.Intensity)
			if s.Revised {
				b.WriteString(" [reinterpreted]")
			}
			b.WriteString(". ")
		} else {
			arc = append(arc, s.PrimaryEmotion)
		}
	}
	if len(arc) > 0 {
		fmt.Fprintf(&b, "Overall arc: %s.", strings.Join(arc, " -> "))
	}
	latest := picked[len(picked)-1]
	if latest.CumulativeFeelings != "" {
		fmt.Fprintf(&b, " %s", latest.CumulativeFeelings)
	}
	return strings.TrimSpace(b.String())
}

// Agents returns every agent with at least one recorded state, sorted.
func (l *EmotionalLedger) Agents() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.original))
	for agent := range l.original {
		out = append(out, agent)
	}
	sort.Strings(out)
	return out
}

func (l *EmotionalLedger) stateAt(idx int) EmotionalState {
	e := l.log[idx]
	if e.kind == entryRevision {
		return cloneState(e.revision.RevisedState)
	}
	return cloneState(e.state)
}

func cloneState(s EmotionalState) EmotionalState {
	c := s
	c.SecondaryEmotions = append([]string(nil), s.SecondaryEmotions...)
	if s.CharacterInvestment != nil {
		c.CharacterInvestment = make(map[string]Investment, len(s.CharacterInvestment))
		for k, v := range s.CharacterInvestment {
			c.CharacterInvestment[k] = v
		}
	}
	return c
}

func cloneRevision(r Revision) Revision {
	c := r
	c.RevisedState = cloneState(r.RevisedState)
	return c
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
