package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tableread/internal/memory"
)

type ListRunsInput struct{}

type GetReportInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"run to inspect, defaults to the latest"`
}

type GetDigestInput struct {
	RunID   string `json:"run_id,omitempty" jsonschema:"run to inspect, defaults to the latest"`
	SceneID int    `json:"scene_id" jsonschema:"compressed scene number"`
}

type GetEntityInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"run to inspect, defaults to the latest"`
	Name  string `json:"name" jsonschema:"entity name or ID, e.g. SARAH or CHARACTER_001"`
}

type ListQuestionsInput struct {
	RunID  string `json:"run_id,omitempty" jsonschema:"run to inspect, defaults to the latest"`
	Status string `json:"status,omitempty" jsonschema:"open, answered, or irrelevant; empty for all"`
}

type GetEmotionalHistoryInput struct {
	RunID   string `json:"run_id,omitempty" jsonschema:"run to inspect, defaults to the latest"`
	AgentID string `json:"agent_id" jsonschema:"reviewer ID, e.g. horror_fan"`
	SceneID int    `json:"scene_id,omitempty" jsonschema:"restrict to one scene; 0 for all"`
}

type RunSummaryOutput struct {
	RunID      string `json:"run_id"`
	Title      string `json:"title"`
	Reviewers  []string `json:"reviewers"`
	SceneCount int    `json:"scene_count"`
	StartedAt  string `json:"started_at"`
	Finished   bool   `json:"finished"`
}

type ListRunsOutput struct {
	Runs []RunSummaryOutput `json:"runs"`
}

type GetReportOutput struct {
	Report json.RawMessage `json:"report"`
}

type GetDigestOutput struct {
	Digest memory.Digest `json:"digest"`
}

type GetEntityOutput struct {
	Entity memory.Entity `json:"entity"`
}

type QuestionOutput struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	Status      string  `json:"status"`
	RaisedBy    string  `json:"raised_by"`
	RaisedScene int     `json:"raised_scene"`
	Importance  float64 `json:"importance"`
}

type ListQuestionsOutput struct {
	Questions []QuestionOutput `json:"questions"`
}

type EmotionEventOutput struct {
	SceneID int             `json:"scene_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type GetEmotionalHistoryOutput struct {
	AgentID string               `json:"agent_id"`
	Events  []EmotionEventOutput `json:"events"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_runs",
		Description: "List recorded table reads, newest first",
	}, s.handleListRuns)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_report",
		Description: "Return the full report of a run",
	}, s.handleGetReport)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_digest",
		Description: "Return the compressed digest of a scene",
	}, s.handleGetDigest)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Return a tracked entity with its importance and history",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_questions",
		Description: "List narrative questions, optionally by status",
	}, s.handleListQuestions)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_emotional_history",
		Description: "Return a reviewer's emotional states and revisions",
	}, s.handleGetEmotionalHistory)
}

// resolveRun maps an empty run ID to the latest recorded run.
func (s *Server) resolveRun(ctx context.Context, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	run, err := s.db.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *Server) handleListRuns(ctx context.Context, req *sdk.CallToolRequest, input ListRunsInput) (*sdk.CallToolResult, ListRunsOutput, error) {
	runs, err := s.db.ListRuns(ctx)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	out := make([]RunSummaryOutput, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunSummaryOutput{
			RunID:      run.ID,
			Title:      run.Title,
			Reviewers:  run.Reviewers,
			SceneCount: run.SceneCount,
			StartedAt:  run.StartedAt.Format("2006-01-02 15:04:05"),
			Finished:   !run.FinishedAt.IsZero(),
		})
	}
	return nil, ListRunsOutput{Runs: out}, nil
}

func (s *Server) handleGetReport(ctx context.Context, req *sdk.CallToolRequest, input GetReportInput) (*sdk.CallToolResult, GetReportOutput, error) {
	runID, err := s.resolveRun(ctx, input.RunID)
	if err != nil {
		return nil, GetReportOutput{}, err
	}
	run, err := s.db.GetRun(ctx, runID)
	if err != nil {
		return nil, GetReportOutput{}, err
	}
	if len(run.ReportJSON) == 0 {
		return nil, GetReportOutput{}, fmt.Errorf("run %s has not finished", runID)
	}
	return nil, GetReportOutput{Report: run.ReportJSON}, nil
}

func (s *Server) handleGetDigest(ctx context.Context, req *sdk.CallToolRequest, input GetDigestInput) (*sdk.CallToolResult, GetDigestOutput, error) {
	if input.SceneID <= 0 {
		return nil, GetDigestOutput{}, fmt.Errorf("scene_id is required")
	}
	runID, err := s.resolveRun(ctx, input.RunID)
	if err != nil {
		return nil, GetDigestOutput{}, err
	}
	digests, err := s.db.GetDigests(ctx, runID)
	if err != nil {
		return nil, GetDigestOutput{}, err
	}
	for _, d := range digests {
		if d.SceneID != input.SceneID {
			continue
		}
		var digest memory.Digest
		if err := json.Unmarshal(d.Payload, &digest); err != nil {
			return nil, GetDigestOutput{}, fmt.Errorf("decoding digest: %w", err)
		}
		return nil, GetDigestOutput{Digest: digest}, nil
	}
	return nil, GetDigestOutput{}, fmt.Errorf("no digest for scene %d; the scene may still be in the recent buffer", input.SceneID)
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, GetEntityOutput, error) {
	if input.Name == "" {
		return nil, GetEntityOutput{}, fmt.Errorf("name is required")
	}
	runID, err := s.resolveRun(ctx, input.RunID)
	if err != nil {
		return nil, GetEntityOutput{}, err
	}
	entities, err := s.db.GetEntities(ctx, runID)
	if err != nil {
		return nil, GetEntityOutput{}, err
	}
	want := strings.ToUpper(strings.TrimSpace(input.Name))
	for _, e := range entities {
		if strings.ToUpper(e.EntityID) != want && strings.ToUpper(e.Name) != want {
			continue
		}
		var entity memory.Entity
		if err := json.Unmarshal(e.Payload, &entity); err != nil {
			return nil, GetEntityOutput{}, fmt.Errorf("decoding entity: %w", err)
		}
		return nil, GetEntityOutput{Entity: entity}, nil
	}
	return nil, GetEntityOutput{}, fmt.Errorf("entity not found: %s", input.Name)
}

func (s *Server) handleListQuestions(ctx context.Context, req *sdk.CallToolRequest, input ListQuestionsInput) (*sdk.CallToolResult, ListQuestionsOutput, error) {
	switch input.Status {
	case "", "open", "answered", "irrelevant":
	default:
		return nil, ListQuestionsOutput{}, fmt.Errorf("unknown status: %s", input.Status)
	}
	runID, err := s.resolveRun(ctx, input.RunID)
	if err != nil {
		return nil, ListQuestionsOutput{}, err
	}
	questions, err := s.db.GetQuestions(ctx, runID, input.Status)
	if err != nil {
		return nil, ListQuestionsOutput{}, err
	}
	out := make([]QuestionOutput, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuestionOutput{
			ID:          q.QuestionID,
			Text:        q.Text,
			Status:      q.Status,
			RaisedBy:    q.RaisedBy,
			RaisedScene: q.RaisedScene,
			Importance:  q.Importance,
		})
	}
	return nil, ListQuestionsOutput{Questions: out}, nil
}

func (s *Server) handleGetEmotionalHistory(ctx context.Context, req *sdk.CallToolRequest, input GetEmotionalHistoryInput) (*sdk.CallToolResult, GetEmotionalHistoryOutput, error) {
	if input.AgentID == "" {
		return nil, GetEmotionalHistoryOutput{}, fmt.Errorf("agent_id is required")
	}
	runID, err := s.resolveRun(ctx, input.RunID)
	if err != nil {
		return nil, GetEmotionalHistoryOutput{}, err
	}
	records, err := s.db.GetEmotions(ctx, runID, input.AgentID)
	if err != nil {
		return nil, GetEmotionalHistoryOutput{}, err
	}
	out := GetEmotionalHistoryOutput{AgentID: input.AgentID}
	for _, r := range records {
		if input.SceneID > 0 && r.SceneID != input.SceneID {
			continue
		}
		out.Events = append(out.Events, EmotionEventOutput{
			SceneID: r.SceneID,
			Kind:    r.Kind,
			Payload: r.Payload,
		})
	}
	if len(out.Events) == 0 {
		return nil, GetEmotionalHistoryOutput{}, fmt.Errorf("no emotional history for %s", input.AgentID)
	}
	return nil, out, nil
}
