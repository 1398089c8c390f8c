package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"tableread/internal/screenplay"
)

type EntityType string

const (
	EntityCharacter EntityType = "character"
	EntityObject    EntityType = "object"
	EntityLocation  EntityType = "location"
)

type Significance string

const (
	SignificanceLow      Significance = "low"
	SignificanceMedium   Significance = "medium"
	SignificanceHigh     Significance = "high"
	SignificanceCritical Significance = "critical"
)

type KeyMoment struct {
	SceneID      int
	Description  string
	Significance Significance
}

// Relationship is an ID reference into the registry, never a pointer to the
// other entity, so the graph stays acyclic for serialization.
type Relationship struct {
	OtherID string
	Kind    string
	Tension string
}

type Entity struct {
	ID          string
	Type        EntityType
	Name        string
	Aliases     []string
	Description string

	FirstSeen       int
	LastSeen        int
	Appearances     []int
	AppearanceCount int
	SpeakingLines   int
	DialogueCount   int

	MentionedWhileAbsent []int
	Relationships        []Relationship
	KeyMoments           []KeyMoment

	// Foreshadowed records the one-time cryptic-mention boost. It is a flag,
	// not an accumulator, so repeated detection cannot compound the boost.
	Foreshadowed bool

	Importance float64
}

// Importance formula weights. The sum of all components is clamped to 1.0.
const (
	speakingWeight     = 0.20
	appearanceWeight   = 0.15
	spanWeight         = 0.15
	absentWeight       = 0.20
	relationshipWeight = 0.10
	keyMomentWeight    = 0.20
	recencyBonus       = 0.10
	foreshadowBonus    = 0.15

	// Normalization divisors, tuned for feature-length screenplays.
	speakingNorm     = 10.0
	appearanceNorm   = 5.0
	absentNorm       = 5.0
	relationshipNorm = 3.0
	keyMomentNorm    = 3.0

	// recencyWindow is shared with the question ledger: anything seen or
	// referenced fewer than this many scenes ago earns the recency bonus.
	recencyWindow = 5
)

// Retention tiers consumed by the assembler.
const (
	RetentionAlways      = 0.7
	RetentionConditional = 0.4
)

// Registry tracks every named entity seen anywhere in the document. Entities
// are created on first mention and never deleted; falling importance only
// evicts them from assembled context, not from the registry.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	byName   map[string]string
	order    []string
	counters map[EntityType]int

	currentScene int
}

func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		byName:   make(map[string]string),
		counters: make(map[EntityType]int),
	}
}

// Observe registers or updates every entity a scene touches: speaking
// characters, silent characters, emphasized objects, and the location. It
// then recomputes importance for the whole registry at the scene's position.
func (r *Registry) Observe(scene screenplay.Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentScene = scene.ID

	speaking := make(map[string]bool, len(scene.CharactersSpeaking))
	for _, name := range scene.CharactersSpeaking {
		speaking[name] = true
		e := r.getOrCreate(name, EntityCharacter, scene.ID)
		e.recordAppearance(scene.ID)
		lines := scene.SpeakingLines(name)
		e.SpeakingLines += lines
		if lines > 0 {
			e.DialogueCount++
		}
	}
	for _, name := range scene.CharactersPresent {
		if speaking[name] {
			continue
		}
		e := r.getOrCreate(name, EntityCharacter, scene.ID)
		e.recordAppearance(scene.ID)
	}
	for _, name := range scene.Objects {
		e := r.getOrCreate(name, EntityObject, scene.ID)
		e.recordAppearance(scene.ID)
	}
	if scene.Location != "" {
		e := r.getOrCreate(scene.Location, EntityLocation, scene.ID)
		e.recordAppearance(scene.ID)
	}

	r.recomputeLocked()
}

// RecordMention notes that an entity was discussed in a scene it does not
// appear in. Unknown names are registered first, so a mention-before-
// appearance still lands on the right entity later via alias resolution.
func (r *Registry) RecordMention(name string, sceneID int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreate(name, EntityCharacter, sceneID)
	for _, s := range e.Appearances {
		if s == sceneID {
			e.Importance = r.scoreLocked(e)
			return e.ID
		}
	}
	for _, s := range e.MentionedWhileAbsent {
		if s == sceneID {
			return e.ID
		}
	}
	e.MentionedWhileAbsent = append(e.MentionedWhileAbsent, sceneID)
	e.Importance = r.scoreLocked(e)
	return e.ID
}

// MarkForeshadowed applies the one-time cryptic-mention boost. Idempotent.
func (r *Registry) MarkForeshadowed(name string, sceneID int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreate(name, EntityCharacter, sceneID)
	if !e.Foreshadowed {
		e.Foreshadowed = true
		e.Importance = r.scoreLocked(e)
	}
	return e.ID
}

func (r *Registry) AddRelationship(name, otherName, kind, tension string, sceneID int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreate(name, EntityCharacter, sceneID)
	other := r.getOrCreate(otherName, EntityCharacter, sceneID)
	for i, rel := range e.Relationships {
		if rel.OtherID == other.ID {
			e.Relationships[i].Kind = kind
			e.Relationships[i].Tension = tension
			return e.ID, nil
		}
	}
	e.Relationships = append(e.Relationships, Relationship{OtherID: other.ID, Kind: kind, Tension: tension})
	e.Importance = r.scoreLocked(e)
	return e.ID, nil
}

func (r *Registry) AddKeyMoment(name string, sceneID int, description string, significance Significance) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreate(name, EntityCharacter, sceneID)
	e.KeyMoments = append(e.KeyMoments, KeyMoment{SceneID: sceneID, Description: description, Significance: significance})
	e.Importance = r.scoreLocked(e)
	return e.ID, nil
}

// AddAlias records that alias refers to the same entity as name, so later
// mentions under either spelling resolve to one record.
func (r *Registry) AddAlias(name, alias string, sceneID int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreate(name, EntityCharacter, sceneID)
	key := normalizeName(alias)
	if _, taken := r.byName[key]; !taken {
		r.byName[key] = e.ID
		e.Aliases = append(e.Aliases, alias)
	}
	return e.ID
}

// SetDescription keeps the most recent non-empty description an agent has
// offered for the entity.
func (r *Registry) SetDescription(name, description string, sceneID int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.getOrCreate(name, EntityCharacter, sceneID)
	if description != "" {
		e.Description = description
	}
	return e.ID
}

func (r *Registry) Get(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.clone(), true
}

// Resolve finds an entity by name or alias, case-insensitively.
func (r *Registry) Resolve(name string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[normalizeName(name)]
	if !ok {
		return Entity{}, false
	}
	return r.entities[id].clone(), true
}

// ResolveID maps a name or alias to an entity ID without creating anything.
// Lookup misses return ErrUnknownEntity.
func (r *Registry) ResolveID(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[normalizeName(name)]
	if !ok {
		return "", fmt.Errorf("resolving %q: %w", name, ErrUnknownEntity)
	}
	return id, nil
}

func (r *Registry) Importance(id string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entities[id]; ok {
		return e.Importance
	}
	return 0
}

// Top returns up to n entities with importance >= min, highest first.
// Ties break on registration order so repeated calls are deterministic.
func (r *Registry) Top(n int, min float64) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, n)
	for _, id := range r.order {
		if e := r.entities[id]; e.Importance >= min {
			out = append(out, e.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ContextEntities applies the retention policy: importance strictly above
// RetentionAlways is always included; the RetentionConditional band is
// included only when the entity is in the current scene or referenced by an
// active question; everything below is excluded from live context.
func (r *Registry) ContextEntities(inScene map[string]bool, questionRefs map[string]bool) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entity
	for _, id := range r.order {
		e := r.entities[id]
		switch {
		case e.Importance > RetentionAlways:
			out = append(out, e.clone())
		case e.Importance >= RetentionConditional:
			if inScene[e.ID] || questionRefs[e.ID] {
				out = append(out, e.clone())
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

// All returns every entity in registration order.
func (r *Registry) All() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id].clone())
	}
	return out
}

// IntroducedIn reports entities whose first appearance is the given scene.
func (r *Registry) IntroducedIn(sceneID int) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entity
	for _, id := range r.order {
		if e := r.entities[id]; e.FirstSeen == sceneID {
			out = append(out, e.clone())
		}
	}
	return out
}

// Recompute re-derives every importance score at the given scene position.
func (r *Registry) Recompute(currentScene int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if currentScene > r.currentScene {
		r.currentScene = currentScene
	}
	r.recomputeLocked()
}

func (r *Registry) recomputeLocked() {
	for _, e := range r.entities {
		e.Importance = r.scoreLocked(e)
	}
}

// scoreLocked implements the importance formula. Every component is
// normalized and clamped upstream so the weighted sum stays within [0, 1].
func (r *Registry) scoreLocked(e *Entity) float64 {
	score := clamp01(float64(e.SpeakingLines)/speakingNorm) * speakingWeight
	score += clamp01(float64(e.AppearanceCount)/appearanceNorm) * appearanceWeight
	if r.currentScene > 0 {
		score += clamp01(float64(e.LastSeen-e.FirstSeen)/float64(r.currentScene)) * spanWeight
	}
	score += clamp01(float64(len(e.MentionedWhileAbsent))/absentNorm) * absentWeight
	score += clamp01(float64(len(e.Relationships))/relationshipNorm) * relationshipWeight

	moments := 0.0
	for _, m := range e.KeyMoments {
		switch m.Significance {
		case SignificanceCritical:
			moments += 1.0
		case SignificanceHigh:
			moments += 0.5
		case SignificanceMedium:
			moments += 0.25
		}
	}
	score += clamp01(moments/keyMomentNorm) * keyMomentWeight

	if r.currentScene-e.LastSeen < recencyWindow {
		score += recencyBonus
	}
	if e.Foreshadowed {
		score += foreshadowBonus
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (r *Registry) getOrCreate(name string, typ EntityType, sceneID int) *Entity {
	key := normalizeName(name)
	if id, ok := r.byName[key]; ok {
		return r.entities[id]
	}

	r.counters[typ]++
	id := fmt.Sprintf("%s_%03d", strings.ToUpper(string(typ)), r.counters[typ])
	e := &Entity{
		ID:        id,
		Type:      typ,
		Name:      name,
		FirstSeen: sceneID,
		LastSeen:  sceneID,
	}
	r.entities[id] = e
	r.byName[key] = id
	r.order = append(r.order, id)
	return e
}

func (e *Entity) recordAppearance(sceneID int) {
	for _, s := range e.Appearances {
		if s == sceneID {
			if sceneID > e.LastSeen {
				e.LastSeen = sceneID
			}
			return
		}
	}
	e.Appearances = append(e.Appearances, sceneID)
	e.AppearanceCount = len(e.Appearances)
	if sceneID > e.LastSeen {
		e.LastSeen = sceneID
	}
}

func (e *Entity) clone() Entity {
	c := *e
	c.Aliases = append([]string(nil), e.Aliases...)
	c.Appearances = append([]int(nil), e.Appearances...)
	c.MentionedWhileAbsent = append([]int(nil), e.MentionedWhileAbsent...)
	c.Relationships = append([]Relationship(nil), e.Relationships...)
	c.KeyMoments = append([]KeyMoment(nil), e.KeyMoments...)
	return c
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
