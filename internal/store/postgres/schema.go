package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// All DDL runs in one call, which PostgreSQL wraps in an implicit
	// transaction; IF NOT EXISTS keeps it idempotent across runs.
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    reviewers   JSONB DEFAULT '[]',
    scene_count INTEGER NOT NULL DEFAULT 0,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    report      JSONB
);

CREATE TABLE IF NOT EXISTS reviews (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scene_id   INTEGER NOT NULL,
    agent_id   TEXT NOT NULL,
    reaction   TEXT DEFAULT '',
    notes      TEXT DEFAULT '',
    emotion    TEXT DEFAULT '',
    intensity  DOUBLE PRECISION DEFAULT 0,
    engagement DOUBLE PRECISION DEFAULT 0,
    CONSTRAINT uq_review UNIQUE (run_id, scene_id, agent_id)
);

CREATE TABLE IF NOT EXISTS entities (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    entity_id   TEXT NOT NULL,
    name        TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    importance  DOUBLE PRECISION DEFAULT 0,
    payload     JSONB DEFAULT '{}',
    CONSTRAINT uq_entity UNIQUE (run_id, entity_id)
);

CREATE TABLE IF NOT EXISTS questions (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    question_id  TEXT NOT NULL,
    text         TEXT NOT NULL,
    status       TEXT NOT NULL,
    raised_by    TEXT DEFAULT '',
    raised_scene INTEGER NOT NULL,
    importance   DOUBLE PRECISION DEFAULT 0,
    payload      JSONB DEFAULT '{}',
    CONSTRAINT uq_question UNIQUE (run_id, question_id)
);

CREATE TABLE IF NOT EXISTS digests (
    id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scene_id   INTEGER NOT NULL,
    heading    TEXT DEFAULT '',
    summary    TEXT DEFAULT '',
    importance DOUBLE PRECISION DEFAULT 0,
    payload    JSONB DEFAULT '{}',
    CONSTRAINT uq_digest UNIQUE (run_id, scene_id)
);

CREATE TABLE IF NOT EXISTS emotions (
    id       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    agent_id TEXT NOT NULL,
    scene_id INTEGER NOT NULL,
    kind     TEXT NOT NULL,
    seq      INTEGER NOT NULL,
    payload  JSONB DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_reviews_run_scene ON reviews (run_id, scene_id);
CREATE INDEX IF NOT EXISTS idx_entities_run ON entities (run_id);
CREATE INDEX IF NOT EXISTS idx_questions_run_status ON questions (run_id, status);
CREATE INDEX IF NOT EXISTS idx_digests_run ON digests (run_id);
CREATE INDEX IF NOT EXISTS idx_emotions_run_agent ON emotions (run_id, agent_id, scene_id, seq);
`

	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("executing DDL: %w", err)
	}
	return nil
}
