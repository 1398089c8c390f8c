package memory

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"tableread/internal/screenplay"
)

// Options tunes the engine. Zero values fall back to defaults. A negative
// MaxDigests disables the cap so every digest reaches the assembler.
type Options struct {
	BufferSize            int
	MaxDigests            int
	MinQuestionImportance float64
	JourneyWindow         int
}

const (
	defaultMaxDigests    = 10
	defaultMinImportance = 0.4
	defaultJourneyWindow = 10
)

func (o *Options) withDefaults() Options {
	out := *o
	if out.BufferSize <= 0 {
		out.BufferSize = DefaultBufferSize
	}
	if out.MaxDigests == 0 {
		out.MaxDigests = defaultMaxDigests
	}
	if out.MinQuestionImportance <= 0 {
		out.MinQuestionImportance = defaultMinImportance
	}
	if out.JourneyWindow <= 0 {
		out.JourneyWindow = defaultJourneyWindow
	}
	return out
}

// Engine owns the four memory structures and enforces the processing order:
// scenes advance one at a time, and a scene's full text is only compressed
// after every agent's response for it has been ingested.
type Engine struct {
	mu sync.Mutex

	Registry *Registry
	Ledger   *Ledger
	Emotions *EmotionalLedger

	buffer   *RecentBuffer
	digests  *DigestStore
	compress *Compressor

	opts         Options
	totalScenes  int
	currentScene int
	log          *zap.Logger
}

func NewEngine(opts Options, totalScenes int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	o := opts.withDefaults()
	if o.BufferSize < 3 || o.BufferSize > 5 {
		log.Warn("recent buffer size outside the recommended 3-5 range",
			zap.Int("size", o.BufferSize))
	}
	reg := NewRegistry()
	led := NewLedger()
	emo := NewEmotionalLedger()
	return &Engine{
		Registry: reg,
		Ledger:   led,
		Emotions: emo,
		buffer:   NewRecentBuffer(o.BufferSize),
		digests:  NewDigestStore(),
		compress: NewCompressor(reg, led, emo),
		opts:     o,
		totalScenes: totalScenes,
		log:         log,
	}
}

// BeginScene advances the engine to a scene. Scenes must arrive in strictly
// increasing order; skipping or revisiting one is rejected.
func (e *Engine) BeginScene(scene screenplay.Scene) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if scene.ID <= e.currentScene {
		return fmt.Errorf("scene %d after scene %d: %w", scene.ID, e.currentScene, ErrOutOfOrderScene)
	}
	e.currentScene = scene.ID
	e.Registry.Observe(scene)
	e.Ledger.Recompute(scene.ID, e.Registry.Importance)
	return nil
}

// ContextFor assembles the prompt context for one agent at the current
// scene. It only reads memory state, so concurrent calls for different
// agents see the same view.
func (e *Engine) ContextFor(agentID string, scene screenplay.Scene) Context {
	questions := e.Ledger.Active(e.opts.MinQuestionImportance)
	refs := e.Ledger.RelatedEntitySet(e.opts.MinQuestionImportance)
	inScene := make(map[string]bool)
	for _, name := range scene.CharactersPresent {
		if ent, ok := e.Registry.Resolve(name); ok {
			inScene[ent.ID] = true
		}
	}

	// The recent section shows only scenes before the one under review,
	// whether or not the current scene has been pushed yet.
	var recent []screenplay.Scene
	for _, s := range e.buffer.Scenes() {
		if s.ID < scene.ID {
			recent = append(recent, s)
		}
	}

	digests := e.digests.All()
	if e.opts.MaxDigests > 0 {
		digests = e.digests.TopN(e.opts.MaxDigests)
	}

	return Assemble(AssemblerInput{
		AgentID:     agentID,
		Scene:       scene,
		Recent:      recent,
		Digests:     digests,
		Entities:    e.Registry.ContextEntities(inScene, refs),
		Questions:   questionsMentioning(questions, inScene),
		Journey:     e.Emotions.Journey(agentID, scene.ID-1, e.opts.JourneyWindow),
		TotalScenes: e.totalScenes,
	})
}

// questionsMentioning keeps all active questions but orders ones touching
// the current scene's cast first.
func questionsMentioning(questions []Question, inScene map[string]bool) []Question {
	var first, rest []Question
	for _, q := range questions {
		touches := false
		for _, eid := range q.RelatedEntities {
			if inScene[eid] {
				touches = true
				break
			}
		}
		if touches {
			first = append(first, q)
		} else {
			rest = append(rest, q)
		}
	}
	return append(first, rest...)
}

// EndScene finishes a scene after all responses are ingested: it pushes the
// scene into the recent buffer and synchronously compresses whatever the
// push evicted, preserving scene order in the digest store.
func (e *Engine) EndScene(scene screenplay.Scene) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	evicted, ok := e.buffer.Push(scene)
	if !ok {
		return nil
	}
	d := e.compress.Compress(evicted)
	if err := e.digests.Add(d); err != nil {
		return fmt.Errorf("compressing scene %d: %w", evicted.ID, err)
	}
	e.log.Debug("scene compressed",
		zap.Int("scene", evicted.ID),
		zap.Int("beats", len(d.PlotBeats)),
		zap.Float64("importance", d.Importance))
	return nil
}

// ReviseEmotion applies a retroactive revision and, when the target scene is
// already compressed, appends the revised view to its digest alongside the
// untouched original snapshot.
func (e *Engine) ReviseEmotion(agentID string, targetScene, triggerScene int, reason string, revised EmotionalState) error {
	if err := e.Emotions.Revise(agentID, targetScene, triggerScene, reason, revised); err != nil {
		return err
	}
	if _, ok := e.digests.Get(targetScene); ok {
		note := fmt.Sprintf("%s reinterpreted this scene after scene %d: %s", agentID, triggerScene, reason)
		e.digests.AnnotateRevision(targetScene, note, RevisedSnapshot{
			AgentID:      agentID,
			TriggerScene: triggerScene,
			State:        revised,
		})
	}
	return nil
}

func (e *Engine) CurrentScene() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentScene
}

func (e *Engine) Digest(sceneID int) (Digest, bool) { return e.digests.Get(sceneID) }

func (e *Engine) Digests() []Digest { return e.digests.All() }

func (e *Engine) Entity(idOrName string) (Entity, bool) {
	if ent, ok := e.Registry.Get(idOrName); ok {
		return ent, true
	}
	return e.Registry.Resolve(idOrName)
}

func (e *Engine) QuestionsByStatus(status QuestionStatus) []Question {
	return e.Ledger.ByStatus(status)
}

func (e *Engine) EmotionalHistory(agentID string, sceneID int) (EmotionalState, []Revision) {
	return e.Emotions.History(agentID, sceneID)
}
