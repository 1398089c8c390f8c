package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"tableread/internal/screenplay"
)

// Digest is the compressed record of a scene evicted from the recent buffer.
// Everything except EmotionalSnapshot is lossy; the snapshot is copied from
// the ledger verbatim and never summarized.
type Digest struct {
	SceneID           int                       `json:"scene_id"`
	Heading           string                    `json:"heading"`
	Summary           string                    `json:"summary"`
	KeyEntities       []string                  `json:"key_entities,omitempty"`
	KeyObjects        []string                  `json:"key_objects,omitempty"`
	PlotBeats         []string                  `json:"plot_beats,omitempty"`
	Importance        float64                   `json:"importance"`
	EmotionalSnapshot map[string]EmotionalState `json:"emotional_snapshot,omitempty"`
	RevisionNotes     []string                  `json:"revision_notes,omitempty"`
	RevisedSnapshots  []RevisedSnapshot         `json:"revised_snapshots,omitempty"`
}

// RevisedSnapshot is a later reinterpretation of one agent's state for an
// already compressed scene. It is appended next to the original snapshot,
// which stays in place.
type RevisedSnapshot struct {
	AgentID      string         `json:"agent_id"`
	TriggerScene int            `json:"trigger_scene"`
	State        EmotionalState `json:"state"`
}

// plotBeatKeywords maps trigger words in action or dialogue lines to beat
// labels worth keeping after compression.
var plotBeatKeywords = map[string]string{
	"kill":     "violence or a death",
	"dead":     "violence or a death",
	"dies":     "violence or a death",
	"gun":      "a weapon appears",
	"knife":    "a weapon appears",
	"weapon":   "a weapon appears",
	"secret":   "a secret surfaces",
	"lie":      "a deception",
	"lied":     "a deception",
	"betray":   "a betrayal",
	"love":     "a romantic turn",
	"kiss":     "a romantic turn",
	"money":    "money changes the stakes",
	"steal":    "a theft",
	"stolen":   "a theft",
	"escape":   "an escape",
	"trapped":  "someone is trapped",
	"discover": "a discovery",
	"reveal":   "a reveal",
	"confess":  "a confession",
	"threat":   "a threat",
	"threaten": "a threat",
}

// Compressor turns evicted scenes into digests. It consults the registry and
// the question ledger so the digest records who entered, who left, what was
// asked, and what was answered in the scene.
type Compressor struct {
	registry *Registry
	ledger   *Ledger
	emotions *EmotionalLedger
}

func NewCompressor(registry *Registry, ledger *Ledger, emotions *EmotionalLedger) *Compressor {
	return &Compressor{registry: registry, ledger: ledger, emotions: emotions}
}

func (c *Compressor) Compress(scene screenplay.Scene) Digest {
	d := Digest{
		SceneID:    scene.ID,
		Heading:    scene.Heading,
		Summary:    summarize(scene),
		KeyObjects: append([]string(nil), scene.Objects...),
		Importance: SceneImportance(scene),
	}

	for _, name := range scene.CharactersPresent {
		if e, ok := c.registry.Resolve(name); ok {
			d.KeyEntities = append(d.KeyEntities, e.ID)
		}
	}

	d.PlotBeats = append(d.PlotBeats, keywordBeats(scene)...)
	for _, e := range c.registry.IntroducedIn(scene.ID) {
		d.PlotBeats = append(d.PlotBeats, fmt.Sprintf("%s first appears", e.Name))
	}
	for _, q := range c.ledger.RaisedIn(scene.ID) {
		d.PlotBeats = append(d.PlotBeats, fmt.Sprintf("raises the question: %s", q.Text))
	}
	for _, q := range c.ledger.ResolvedIn(scene.ID) {
		d.PlotBeats = append(d.PlotBeats, fmt.Sprintf("answers %s: %s", q.ID, q.Answer))
	}

	d.EmotionalSnapshot = c.emotions.Snapshot(scene.ID)
	return d
}

// summarize builds a one-paragraph summary from the scene's structure: the
// slugline facts, who is there, and the first meaningful action line.
func summarize(scene screenplay.Scene) string {
	var b strings.Builder
	place := scene.Location
	if place == "" {
		place = scene.Heading
	}
	fmt.Fprintf(&b, "Scene %d at %s", scene.ID, place)
	if scene.TimeOfDay != "" {
		fmt.Fprintf(&b, " (%s)", strings.ToLower(scene.TimeOfDay))
	}
	if len(scene.CharactersPresent) > 0 {
		fmt.Fprintf(&b, " with %s", strings.Join(scene.CharactersPresent, ", "))
	}
	b.WriteString(".")

	for _, el := range scene.Elements {
		if el.Type == screenplay.ElementAction && len(el.Text) > 20 {
			b.WriteString(" ")
			b.WriteString(truncate(el.Text, 200))
			break
		}
	}
	if n := scene.DialogueCount(); n > 0 {
		fmt.Fprintf(&b, " %d dialogue exchanges.", n)
	}
	return b.String()
}

// SceneImportance estimates how much a scene matters from its surface
// features alone. Later-scene heuristics (climax proximity) stack with beat
// density and cast size, capped at 1.0.
func SceneImportance(scene screenplay.Scene) float64 {
	score := 0.3
	score += 0.1 * float64(len(keywordBeats(scene)))
	if len(scene.CharactersPresent) >= 3 {
		score += 0.1
	}
	if scene.DialogueCount() > 10 {
		score += 0.1
	}
	if scene.WordCount > 400 {
		score += 0.1
	}
	if scene.IsLast {
		score += 0.2
	}
	return clamp01(score)
}

func keywordBeats(scene screenplay.Scene) []string {
	lower := strings.ToLower(scene.Text)
	seen := make(map[string]bool)
	var beats []string
	for word, beat := range plotBeatKeywords {
		if seen[beat] {
			continue
		}
		if strings.Contains(lower, word) {
			seen[beat] = true
			beats = append(beats, beat)
		}
	}
	sort.Strings(beats)
	return beats
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// DigestStore holds digests in scene order. Scenes are compressed strictly
// in the order they were evicted, so an out-of-order add indicates a bug
// upstream and is rejected.
type DigestStore struct {
	mu      sync.RWMutex
	digests []Digest
	byScene map[int]int
}

func NewDigestStore() *DigestStore {
	return &DigestStore{byScene: make(map[int]int)}
}

func (s *DigestStore) Add(d Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.digests); n > 0 && d.SceneID <= s.digests[n-1].SceneID {
		return fmt.Errorf("digest for scene %d after scene %d: %w", d.SceneID, s.digests[n-1].SceneID, ErrOutOfOrderScene)
	}
	s.byScene[d.SceneID] = len(s.digests)
	s.digests = append(s.digests, cloneDigest(d))
	return nil
}

func (s *DigestStore) Get(sceneID int) (Digest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byScene[sceneID]
	if !ok {
		return Digest{}, false
	}
	return cloneDigest(s.digests[idx]), true
}

func (s *DigestStore) All() []Digest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Digest, 0, len(s.digests))
	for _, d := range s.digests {
		out = append(out, cloneDigest(d))
	}
	return out
}

func (s *DigestStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.digests)
}

// TopN returns the n most important digests, scene order preserved among the
// selection.
func (s *DigestStore) TopN(n int) []Digest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.digests) == 0 {
		return nil
	}
	idx := make([]int, len(s.digests))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.digests[idx[a]].Importance > s.digests[idx[b]].Importance
	})
	if n > len(idx) {
		n = len(idx)
	}
	picked := append([]int(nil), idx[:n]...)
	sort.Ints(picked)

	out := make([]Digest, 0, n)
	for _, i := range picked {
		out = append(out, cloneDigest(s.digests[i]))
	}
	return out
}

// AnnotateRevision marks a compressed scene's digest when a later revision
// reinterprets it, so the summary is not silently stale. Annotations are
// append-only: the original EmotionalSnapshot is never replaced, the digest
// carries both views.
func (s *DigestStore) AnnotateRevision(sceneID int, note string, revised RevisedSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byScene[sceneID]
	if !ok {
		return false
	}
	d := &s.digests[idx]
	d.RevisionNotes = append(d.RevisionNotes, note)
	if revised.AgentID != "" {
		revised.State = cloneState(revised.State)
		d.RevisedSnapshots = append(d.RevisedSnapshots, revised)
	}
	return true
}

func cloneDigest(d Digest) Digest {
	c := d
	c.KeyEntities = append([]string(nil), d.KeyEntities...)
	c.KeyObjects = append([]string(nil), d.KeyObjects...)
	c.PlotBeats = append([]string(nil), d.PlotBeats...)
	c.RevisionNotes = append([]string(nil), d.RevisionNotes...)
	if d.RevisedSnapshots != nil {
		c.RevisedSnapshots = make([]RevisedSnapshot, 0, len(d.RevisedSnapshots))
		for _, rs := range d.RevisedSnapshots {
			rs.State = cloneState(rs.State)
			c.RevisedSnapshots = append(c.RevisedSnapshots, rs)
		}
	}
	if d.EmotionalSnapshot != nil {
		c.EmotionalSnapshot = make(map[string]EmotionalState, len(d.EmotionalSnapshot))
		for k, v := range d.EmotionalSnapshot {
			c.EmotionalSnapshot[k] = cloneState(v)
		}
	}
	return c
}
