package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tableread/internal/store"
)

func (c *Client) CreateRun(ctx context.Context, run store.RunRecord) error {
	reviewers, err := json.Marshal(run.Reviewers)
	if err != nil {
		return fmt.Errorf("marshaling reviewers: %w", err)
	}

	query := `
INSERT INTO runs (id, title, reviewers, scene_count, started_at)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := c.pool.Exec(ctx, query, run.ID, run.Title, reviewers, run.SceneCount, run.StartedAt); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

func (c *Client) FinishRun(ctx context.Context, runID string, finishedAt time.Time, reportJSON []byte) error {
	query := `UPDATE runs SET finished_at = $1, report = $2 WHERE id = $3`
	tag, err := c.pool.Exec(ctx, query, finishedAt, reportJSON, runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrRunNotFound
	}
	return nil
}

const runColumns = `id, title, reviewers, scene_count, started_at, finished_at, report`

func (c *Client) GetRun(ctx context.Context, runID string) (*store.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	run, err := scanRun(c.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	return run, nil
}

func (c *Client) LatestRun(ctx context.Context) (*store.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT 1`
	run, err := scanRun(c.pool.QueryRow(ctx, query))
	if err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return run, nil
}

func (c *Client) ListRuns(ctx context.Context) ([]store.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []store.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*store.RunRecord, error) {
	var run store.RunRecord
	var reviewers []byte
	var finished *time.Time
	var report []byte
	if err := row.Scan(&run.ID, &run.Title, &reviewers, &run.SceneCount, &run.StartedAt, &finished, &report); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRunNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(reviewers, &run.Reviewers); err != nil {
		return nil, fmt.Errorf("unmarshaling reviewers: %w", err)
	}
	if finished != nil {
		run.FinishedAt = *finished
	}
	run.ReportJSON = report
	return &run, nil
}
