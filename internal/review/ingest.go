package review

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"tableread/internal/memory"
)

// Ingestor applies one reviewer's structured response to shared memory.
// Error policy: malformed facts inside an otherwise-valid response degrade
// to warnings, they never abort the run. Ingest calls for the same scene
// must be serialized by the caller; the run engine holds a mutex across
// them.
type Ingestor struct {
	engine *memory.Engine
	log    *zap.Logger
}

func NewIngestor(engine *memory.Engine, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{engine: engine, log: log}
}

func (in *Ingestor) Ingest(agentID string, sceneID int, resp AgentResponse) {
	in.ingestEntities(sceneID, resp.EntityObservations)
	in.ingestQuestions(agentID, sceneID, resp)
	in.ingestEmotion(agentID, sceneID, resp)
}

func (in *Ingestor) ingestEntities(sceneID int, observations []EntityObservation) {
	reg := in.engine.Registry
	for _, obs := range observations {
		name := strings.TrimSpace(obs.Name)
		if name == "" {
			continue
		}
		if obs.Description != "" {
			reg.SetDescription(name, obs.Description, sceneID)
		}
		if obs.Alias != "" {
			reg.AddAlias(name, obs.Alias, sceneID)
		}
		if obs.MentionedNotPresent {
			reg.RecordMention(name, sceneID)
		}
		if obs.Foreshadowed {
			reg.MarkForeshadowed(name, sceneID)
		}
		if obs.KeyMoment != "" {
			sig := memory.Significance(strings.ToLower(obs.KeyMomentSignificance))
			switch sig {
			case memory.SignificanceLow, memory.SignificanceMedium, memory.SignificanceHigh, memory.SignificanceCritical:
			default:
				sig = memory.SignificanceMedium
			}
			if _, err := reg.AddKeyMoment(name, sceneID, obs.KeyMoment, sig); err != nil {
				in.log.Warn("key moment rejected", zap.String("entity", name), zap.Error(err))
			}
		}
		if obs.RelatedTo != "" {
			if _, err := reg.AddRelationship(name, obs.RelatedTo, obs.RelationshipKind, obs.RelationshipNote, sceneID); err != nil {
				in.log.Warn("relationship rejected", zap.String("entity", name), zap.Error(err))
			}
		}
	}
}

func (in *Ingestor) ingestQuestions(agentID string, sceneID int, resp AgentResponse) {
	led := in.engine.Ledger
	for _, rq := range resp.QuestionsRaised {
		text := strings.TrimSpace(rq.Text)
		if text == "" {
			continue
		}
		var entityIDs []string
		for _, name := range rq.RelatedEntities {
			id, err := in.engine.Registry.ResolveID(name)
			if err != nil {
				// The question still gets raised; it just loses the link.
				in.log.Warn("question references an unknown entity",
					zap.String("agent", agentID),
					zap.String("entity", name),
					zap.Error(err))
				continue
			}
			entityIDs = append(entityIDs, id)
		}
		led.Raise(text, sceneID, agentID, memory.NarrativeWeight(strings.ToLower(rq.NarrativeWeight)), entityIDs, rq.Speculation)
	}

	for _, upd := range resp.QuestionUpdates {
		var err error
		switch strings.ToLower(upd.Action) {
		case "referenced":
			err = led.Reference(upd.QuestionID, sceneID)
		case "answered":
			err = led.Resolve(upd.QuestionID, upd.Detail, sceneID)
		case "irrelevant":
			err = led.MarkIrrelevant(upd.QuestionID, upd.Detail, sceneID)
		default:
			in.log.Warn("unknown question action",
				zap.String("agent", agentID),
				zap.String("question", upd.QuestionID),
				zap.String("action", upd.Action))
			continue
		}
		if err != nil {
			// A second agent answering the same question in the same scene
			// lands here; the first answer wins.
			in.log.Warn("question update rejected",
				zap.String("agent", agentID),
				zap.String("question", upd.QuestionID),
				zap.Error(err))
		}
	}
}

func (in *Ingestor) ingestEmotion(agentID string, sceneID int, resp AgentResponse) {
	state := toEmotionalState(agentID, sceneID, resp.EmotionalState)
	if err := in.engine.Emotions.Append(state); err != nil {
		in.log.Warn("emotional append rejected", zap.String("agent", agentID), zap.Int("scene", sceneID), zap.Error(err))
	}

	for _, rev := range resp.EmotionalRevisions {
		revised := toEmotionalState(agentID, rev.TargetScene, rev.NewState)
		err := in.engine.ReviseEmotion(agentID, rev.TargetScene, sceneID, rev.Reason, revised)
		switch {
		case errors.Is(err, memory.ErrNoPriorState):
			in.log.Warn("revision targets a scene with no recorded state",
				zap.String("agent", agentID),
				zap.Int("target", rev.TargetScene))
		case errors.Is(err, memory.ErrRevisionOrder):
			in.log.Warn("revision targets a future or current scene",
				zap.String("agent", agentID),
				zap.Int("target", rev.TargetScene),
				zap.Int("trigger", sceneID))
		case err != nil:
			in.log.Warn("revision rejected", zap.String("agent", agentID), zap.Error(err))
		}
	}
}

func toEmotionalState(agentID string, sceneID int, r ReportedEmotion) memory.EmotionalState {
	state := memory.EmotionalState{
		AgentID:            agentID,
		SceneID:            sceneID,
		PrimaryEmotion:     r.PrimaryEmotion,
		Intensity:          clamp01(r.Intensity),
		SecondaryEmotions:  r.SecondaryEmotions,
		Trajectory:         r.Trajectory,
		Engagement:         clamp01(r.Engagement),
		CumulativeFeelings: r.CumulativeFeelings,
	}
	if len(r.CharacterFeelings) > 0 {
		state.CharacterInvestment = make(map[string]memory.Investment, len(r.CharacterFeelings))
		for _, cf := range r.CharacterFeelings {
			if cf.Character == "" {
				continue
			}
			state.CharacterInvestment[strings.ToUpper(cf.Character)] = memory.Investment(cf.Stance)
		}
	}
	return state
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
