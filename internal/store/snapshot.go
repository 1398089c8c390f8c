package store

import (
	"context"
	"encoding/json"
	"fmt"

	"tableread/internal/memory"
	"tableread/internal/review"
)

// Snapshot flattens the finished run's memory and report into records and
// writes them in one pass.
func Snapshot(ctx context.Context, st Store, engine *memory.Engine, report *review.Report) error {
	runID := report.RunID

	reviews := make([]SceneReviewRecord, 0, len(report.Scenes))
	for _, sc := range report.Scenes {
		for _, rv := range sc.Reviews {
			reviews = append(reviews, SceneReviewRecord{
				RunID:      runID,
				SceneID:    sc.SceneID,
				AgentID:    rv.AgentID,
				Reaction:   rv.Reaction,
				Notes:      rv.Notes,
				Emotion:    rv.Emotion,
				Intensity:  rv.Intensity,
				Engagement: rv.Engagement,
			})
		}
	}
	if err := st.SaveReviews(ctx, runID, reviews); err != nil {
		return fmt.Errorf("saving reviews: %w", err)
	}

	var entities []EntityRecord
	for _, e := range engine.Registry.All() {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling entity %s: %w", e.ID, err)
		}
		entities = append(entities, EntityRecord{
			RunID:      runID,
			EntityID:   e.ID,
			Name:       e.Name,
			EntityType: string(e.Type),
			Importance: e.Importance,
			Payload:    payload,
		})
	}
	if err := st.SaveEntities(ctx, runID, entities); err != nil {
		return fmt.Errorf("saving entities: %w", err)
	}

	var questions []QuestionRecord
	for _, q := range engine.Ledger.All() {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshaling question %s: %w", q.ID, err)
		}
		questions = append(questions, QuestionRecord{
			RunID:       runID,
			QuestionID:  q.ID,
			Text:        q.Text,
			Status:      string(q.Status),
			RaisedBy:    q.RaisedBy,
			RaisedScene: q.RaisedScene,
			Importance:  q.Importance,
			Payload:     payload,
		})
	}
	if err := st.SaveQuestions(ctx, runID, questions); err != nil {
		return fmt.Errorf("saving questions: %w", err)
	}

	var digests []DigestRecord
	for _, d := range engine.Digests() {
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshaling digest for scene %d: %w", d.SceneID, err)
		}
		digests = append(digests, DigestRecord{
			RunID:      runID,
			SceneID:    d.SceneID,
			Heading:    d.Heading,
			Summary:    d.Summary,
			Importance: d.Importance,
			Payload:    payload,
		})
	}
	if err := st.SaveDigests(ctx, runID, digests); err != nil {
		return fmt.Errorf("saving digests: %w", err)
	}

	var emotions []EmotionRecord
	for _, agent := range engine.Emotions.Agents() {
		seq := 0
		for scene := 1; scene <= engine.CurrentScene(); scene++ {
			orig, revs := engine.Emotions.History(agent, scene)
			if orig.AgentID == "" {
				continue
			}
			payload, err := json.Marshal(orig)
			if err != nil {
				return fmt.Errorf("marshaling emotional state: %w", err)
			}
			emotions = append(emotions, EmotionRecord{
				RunID: runID, AgentID: agent, SceneID: scene, Kind: "state", Seq: seq, Payload: payload,
			})
			seq++
			for _, rev := range revs {
				payload, err := json.Marshal(rev)
				if err != nil {
					return fmt.Errorf("marshaling revision: %w", err)
				}
				emotions = append(emotions, EmotionRecord{
					RunID: runID, AgentID: agent, SceneID: scene, Kind: "revision", Seq: seq, Payload: payload,
				})
				seq++
			}
		}
	}
	if err := st.SaveEmotions(ctx, runID, emotions); err != nil {
		return fmt.Errorf("saving emotions: %w", err)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := st.FinishRun(ctx, runID, report.FinishedAt, reportJSON); err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}
