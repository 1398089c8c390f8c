package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tableread/internal/store"
)

type mockStore struct {
	runs      []store.RunRecord
	entities  []store.EntityRecord
	questions []store.QuestionRecord
	digests   []store.DigestRecord
	emotions  []store.EmotionRecord
	reviews   []store.SceneReviewRecord

	lastQuestionsStatus string
	lastEmotionsAgent   string
}

func (m *mockStore) Close(ctx context.Context) error        { return nil }
func (m *mockStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *mockStore) CreateRun(ctx context.Context, run store.RunRecord) error { return nil }
func (m *mockStore) FinishRun(ctx context.Context, runID string, finishedAt time.Time, reportJSON []byte) error {
	return nil
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*store.RunRecord, error) {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			return &m.runs[i], nil
		}
	}
	return nil, store.ErrRunNotFound
}

func (m *mockStore) LatestRun(ctx context.Context) (*store.RunRecord, error) {
	if len(m.runs) == 0 {
		return nil, store.ErrRunNotFound
	}
	return &m.runs[0], nil
}

func (m *mockStore) ListRuns(ctx context.Context) ([]store.RunRecord, error) { return m.runs, nil }

func (m *mockStore) SaveReviews(ctx context.Context, runID string, reviews []store.SceneReviewRecord) error {
	return nil
}
func (m *mockStore) SaveEntities(ctx context.Context, runID string, entities []store.EntityRecord) error {
	return nil
}
func (m *mockStore) SaveQuestions(ctx context.Context, runID string, questions []store.QuestionRecord) error {
	return nil
}
func (m *mockStore) SaveDigests(ctx context.Context, runID string, digests []store.DigestRecord) error {
	return nil
}
func (m *mockStore) SaveEmotions(ctx context.Context, runID string, emotions []store.EmotionRecord) error {
	return nil
}

func (m *mockStore) GetReviews(ctx context.Context, runID string, sceneID int) ([]store.SceneReviewRecord, error) {
	return m.reviews, nil
}

func (m *mockStore) GetEntities(ctx context.Context, runID string) ([]store.EntityRecord, error) {
	return m.entities, nil
}

func (m *mockStore) GetQuestions(ctx context.Context, runID, status string) ([]store.QuestionRecord, error) {
	m.lastQuestionsStatus = status
	var out []store.QuestionRecord
	for _, q := range m.questions {
		if status == "" || q.Status == status {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockStore) GetDigests(ctx context.Context, runID string) ([]store.DigestRecord, error) {
	return m.digests, nil
}

func (m *mockStore) GetEmotions(ctx context.Context, runID, agentID string) ([]store.EmotionRecord, error) {
	m.lastEmotionsAgent = agentID
	return m.emotions, nil
}

func seededMock() *mockStore {
	return &mockStore{
		runs: []store.RunRecord{{
			ID:         "run-1",
			Title:      "The Basement",
			Reviewers:  []string{"horror_fan"},
			SceneCount: 3,
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
			ReportJSON: []byte(`{"run_id":"run-1"}`),
		}},
		entities: []store.EntityRecord{{
			RunID: "run-1", EntityID: "CHARACTER_001", Name: "SARAH", EntityType: "character",
			Importance: 0.9, Payload: []byte(`{"ID":"CHARACTER_001","Name":"SARAH"}`),
		}},
		questions: []store.QuestionRecord{
			{RunID: "run-1", QuestionID: "Q_001", Text: "open", Status: "open", RaisedScene: 1},
			{RunID: "run-1", QuestionID: "Q_002", Text: "done", Status: "answered", RaisedScene: 2},
		},
		digests: []store.DigestRecord{{
			RunID: "run-1", SceneID: 1, Heading: "INT. ROOM - DAY",
			Payload: []byte(`{"scene_id":1,"heading":"INT. ROOM - DAY","summary":"s"}`),
		}},
		emotions: []store.EmotionRecord{
			{RunID: "run-1", AgentID: "horror_fan", SceneID: 1, Kind: "state", Seq: 0, Payload: []byte(`{}`)},
			{RunID: "run-1", AgentID: "horror_fan", SceneID: 1, Kind: "revision", Seq: 1, Payload: []byte(`{}`)},
		},
	}
}

func TestGetDigest(t *testing.T) {
	server := NewServer(seededMock(), "test")

	_, output, err := server.handleGetDigest(context.Background(), nil, GetDigestInput{SceneID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Digest.SceneID != 1 || output.Digest.Heading != "INT. ROOM - DAY" {
		t.Fatalf("unexpected digest output: %+v", output)
	}

	if _, _, err := server.handleGetDigest(context.Background(), nil, GetDigestInput{SceneID: 99}); err == nil {
		t.Fatalf("expected error for uncompressed scene")
	}
	if _, _, err := server.handleGetDigest(context.Background(), nil, GetDigestInput{}); err == nil {
		t.Fatalf("expected error for missing scene_id")
	}
}

func TestGetEntityByNameOrID(t *testing.T) {
	server := NewServer(seededMock(), "test")

	_, byName, err := server.handleGetEntity(context.Background(), nil, GetEntityInput{Name: "sarah"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byName.Entity.ID != "CHARACTER_001" {
		t.Fatalf("unexpected entity: %+v", byName)
	}

	_, byID, err := server.handleGetEntity(context.Background(), nil, GetEntityInput{Name: "CHARACTER_001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byID.Entity.Name != "SARAH" {
		t.Fatalf("unexpected entity: %+v", byID)
	}

	if _, _, err := server.handleGetEntity(context.Background(), nil, GetEntityInput{Name: "Missing"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestListQuestionsFiltersStatus(t *testing.T) {
	db := seededMock()
	server := NewServer(db, "test")

	_, output, err := server.handleListQuestions(context.Background(), nil, ListQuestionsInput{Status: "open"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Questions) != 1 || output.Questions[0].ID != "Q_001" {
		t.Fatalf("unexpected questions: %+v", output)
	}
	if db.lastQuestionsStatus != "open" {
		t.Fatalf("status not passed through")
	}

	if _, _, err := server.handleListQuestions(context.Background(), nil, ListQuestionsInput{Status: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestGetEmotionalHistory(t *testing.T) {
	server := NewServer(seededMock(), "test")

	_, output, err := server.handleGetEmotionalHistory(context.Background(), nil, GetEmotionalHistoryInput{AgentID: "horror_fan"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Events) != 2 || output.Events[1].Kind != "revision" {
		t.Fatalf("unexpected history: %+v", output)
	}

	if _, _, err := server.handleGetEmotionalHistory(context.Background(), nil, GetEmotionalHistoryInput{}); err == nil {
		t.Fatalf("expected error for missing agent_id")
	}
}

func TestGetReportDefaultsToLatestRun(t *testing.T) {
	server := NewServer(seededMock(), "test")

	_, output, err := server.handleGetReport(context.Background(), nil, GetReportInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(output.Report, &decoded); err != nil {
		t.Fatalf("report not valid JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Fatalf("unexpected report: %+v", decoded)
	}
}
