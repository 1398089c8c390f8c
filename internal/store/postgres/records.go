package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tableread/internal/store"
)

func (c *Client) SaveReviews(ctx context.Context, runID string, reviews []store.SceneReviewRecord) error {
	query := `
INSERT INTO reviews (run_id, scene_id, agent_id, reaction, notes, emotion, intensity, engagement)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id, scene_id, agent_id) DO UPDATE SET
    reaction = EXCLUDED.reaction,
    notes = EXCLUDED.notes,
    emotion = EXCLUDED.emotion,
    intensity = EXCLUDED.intensity,
    engagement = EXCLUDED.engagement
`
	return c.inTx(ctx, func(tx pgx.Tx) error {
		for _, r := range reviews {
			if _, err := tx.Exec(ctx, query,
				runID, r.SceneID, r.AgentID, r.Reaction, r.Notes, r.Emotion, r.Intensity, r.Engagement); err != nil {
				return fmt.Errorf("saving review %s/%d: %w", r.AgentID, r.SceneID, err)
			}
		}
		return nil
	})
}

func (c *Client) SaveEntities(ctx context.Context, runID string, entities []store.EntityRecord) error {
	query := `
INSERT INTO entities (run_id, entity_id, name, entity_type, importance, payload)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id, entity_id) DO UPDATE SET
    name = EXCLUDED.name,
    entity_type = EXCLUDED.entity_type,
    importance = EXCLUDED.importance,
    payload = EXCLUDED.payload
`
	return c.inTx(ctx, func(tx pgx.Tx) error {
		for _, e := range entities {
			if _, err := tx.Exec(ctx, query,
				runID, e.EntityID, e.Name, e.EntityType, e.Importance, e.Payload); err != nil {
				return fmt.Errorf("saving entity %s: %w", e.EntityID, err)
			}
		}
		return nil
	})
}

func (c *Client) SaveQuestions(ctx context.Context, runID string, questions []store.QuestionRecord) error {
	query := `
INSERT INTO questions (run_id, question_id, text, status, raised_by, raised_scene, importance, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (run_id, question_id) DO UPDATE SET
    text = EXCLUDED.text,
    status = EXCLUDED.status,
    importance = EXCLUDED.importance,
    payload = EXCLUDED.payload
`
	return c.inTx(ctx, func(tx pgx.Tx) error {
		for _, q := range questions {
			if _, err := tx.Exec(ctx, query,
				runID, q.QuestionID, q.Text, q.Status, q.RaisedBy, q.RaisedScene, q.Importance, q.Payload); err != nil {
				return fmt.Errorf("saving question %s: %w", q.QuestionID, err)
			}
		}
		return nil
	})
}

func (c *Client) SaveDigests(ctx context.Context, runID string, digests []store.DigestRecord) error {
	query := `
INSERT INTO digests (run_id, scene_id, heading, summary, importance, payload)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id, scene_id) DO UPDATE SET
    heading = EXCLUDED.heading,
    summary = EXCLUDED.summary,
    importance = EXCLUDED.importance,
    payload = EXCLUDED.payload
`
	return c.inTx(ctx, func(tx pgx.Tx) error {
		for _, d := range digests {
			if _, err := tx.Exec(ctx, query,
				runID, d.SceneID, d.Heading, d.Summary, d.Importance, d.Payload); err != nil {
				return fmt.Errorf("saving digest for scene %d: %w", d.SceneID, err)
			}
		}
		return nil
	})
}

func (c *Client) SaveEmotions(ctx context.Context, runID string, emotions []store.EmotionRecord) error {
	query := `
INSERT INTO emotions (run_id, agent_id, scene_id, kind, seq, payload)
VALUES ($1, $2, $3, $4, $5, $6)
`
	return c.inTx(ctx, func(tx pgx.Tx) error {
		for _, e := range emotions {
			if _, err := tx.Exec(ctx, query,
				runID, e.AgentID, e.SceneID, e.Kind, e.Seq, e.Payload); err != nil {
				return fmt.Errorf("saving emotion %s/%d: %w", e.AgentID, e.SceneID, err)
			}
		}
		return nil
	})
}

func (c *Client) GetReviews(ctx context.Context, runID string, sceneID int) ([]store.SceneReviewRecord, error) {
	query := `
SELECT run_id, scene_id, agent_id, reaction, notes, emotion, intensity, engagement
FROM reviews WHERE run_id = $1 AND scene_id = $2 ORDER BY agent_id
`
	rows, err := c.pool.Query(ctx, query, runID, sceneID)
	if err != nil {
		return nil, fmt.Errorf("getting reviews: %w", err)
	}
	defer rows.Close()

	var out []store.SceneReviewRecord
	for rows.Next() {
		var r store.SceneReviewRecord
		if err := rows.Scan(&r.RunID, &r.SceneID, &r.AgentID, &r.Reaction, &r.Notes, &r.Emotion, &r.Intensity, &r.Engagement); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *Client) GetEntities(ctx context.Context, runID string) ([]store.EntityRecord, error) {
	query := `
SELECT run_id, entity_id, name, entity_type, importance, payload
FROM entities WHERE run_id = $1 ORDER BY importance DESC, entity_id
`
	rows, err := c.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("getting entities: %w", err)
	}
	defer rows.Close()

	var out []store.EntityRecord
	for rows.Next() {
		var e store.EntityRecord
		if err := rows.Scan(&e.RunID, &e.EntityID, &e.Name, &e.EntityType, &e.Importance, &e.Payload); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *Client) GetQuestions(ctx context.Context, runID, status string) ([]store.QuestionRecord, error) {
	query := `
SELECT run_id, question_id, text, status, raised_by, raised_scene, importance, payload
FROM questions WHERE run_id = $1 AND ($2 = '' OR status = $2) ORDER BY question_id
`
	rows, err := c.pool.Query(ctx, query, runID, status)
	if err != nil {
		return nil, fmt.Errorf("getting questions: %w", err)
	}
	defer rows.Close()

	var out []store.QuestionRecord
	for rows.Next() {
		var q store.QuestionRecord
		if err := rows.Scan(&q.RunID, &q.QuestionID, &q.Text, &q.Status, &q.RaisedBy, &q.RaisedScene, &q.Importance, &q.Payload); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (c *Client) GetDigests(ctx context.Context, runID string) ([]store.DigestRecord, error) {
	query := `
SELECT run_id, scene_id, heading, summary, importance, payload
FROM digests WHERE run_id = $1 ORDER BY scene_id
`
	rows, err := c.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("getting digests: %w", err)
	}
	defer rows.Close()

	var out []store.DigestRecord
	for rows.Next() {
		var d store.DigestRecord
		if err := rows.Scan(&d.RunID, &d.SceneID, &d.Heading, &d.Summary, &d.Importance, &d.Payload); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *Client) GetEmotions(ctx context.Context, runID, agentID string) ([]store.EmotionRecord, error) {
	query := `
SELECT run_id, agent_id, scene_id, kind, seq, payload
FROM emotions WHERE run_id = $1 AND ($2 = '' OR agent_id = $2)
ORDER BY agent_id, scene_id, seq
`
	rows, err := c.pool.Query(ctx, query, runID, agentID)
	if err != nil {
		return nil, fmt.Errorf("getting emotions: %w", err)
	}
	defer rows.Close()

	var out []store.EmotionRecord
	for rows.Next() {
		var e store.EmotionRecord
		if err := rows.Scan(&e.RunID, &e.AgentID, &e.SceneID, &e.Kind, &e.Seq, &e.Payload); err != nil {
			return nil, fmt.Errorf("scanning emotion: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (c *Client) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
