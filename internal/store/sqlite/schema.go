package sqlite

import (
	"context"
	"fmt"
	"strings"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		reviewers   TEXT DEFAULT '[]',
		scene_count INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		finished_at TEXT DEFAULT '',
		report      TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		scene_id   INTEGER NOT NULL,
		agent_id   TEXT NOT NULL,
		reaction   TEXT DEFAULT '',
		notes      TEXT DEFAULT '',
		emotion    TEXT DEFAULT '',
		intensity  REAL DEFAULT 0,
		engagement REAL DEFAULT 0,
		CONSTRAINT uq_review UNIQUE (run_id, scene_id, agent_id)
	);

	CREATE TABLE IF NOT EXISTS entities (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		entity_id   TEXT NOT NULL,
		name        TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		importance  REAL DEFAULT 0,
		payload     TEXT DEFAULT '{}',
		CONSTRAINT uq_entity UNIQUE (run_id, entity_id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		question_id  TEXT NOT NULL,
		text         TEXT NOT NULL,
		status       TEXT NOT NULL,
		raised_by    TEXT DEFAULT '',
		raised_scene INTEGER NOT NULL,
		importance   REAL DEFAULT 0,
		payload      TEXT DEFAULT '{}',
		CONSTRAINT uq_question UNIQUE (run_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS digests (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		scene_id   INTEGER NOT NULL,
		heading    TEXT DEFAULT '',
		summary    TEXT DEFAULT '',
		importance REAL DEFAULT 0,
		payload    TEXT DEFAULT '{}',
		CONSTRAINT uq_digest UNIQUE (run_id, scene_id)
	);

	CREATE TABLE IF NOT EXISTS emotions (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		agent_id TEXT NOT NULL,
		scene_id INTEGER NOT NULL,
		kind     TEXT NOT NULL,
		seq      INTEGER NOT NULL,
		payload  TEXT DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_run_scene ON reviews (run_id, scene_id);
	CREATE INDEX IF NOT EXISTS idx_entities_run ON entities (run_id);
	CREATE INDEX IF NOT EXISTS idx_questions_run_status ON questions (run_id, status);
	CREATE INDEX IF NOT EXISTS idx_digests_run ON digests (run_id);
	CREATE INDEX IF NOT EXISTS idx_emotions_run_agent ON emotions (run_id, agent_id, scene_id, seq);
	`

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		statements = append(statements, current.String())
	}
	return statements
}
