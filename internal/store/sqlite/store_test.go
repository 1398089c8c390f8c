package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"tableread/internal/store"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return c
}

func TestRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := store.RunRecord{
		ID:         "run-1",
		Title:      "The Basement",
		Reviewers:  []string{"horror_fan", "indie_critic"},
		SceneCount: 12,
		StartedAt:  started,
	}
	if err := c.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	got, err := c.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "The Basement" || len(got.Reviewers) != 2 || !got.StartedAt.Equal(started) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.ReportJSON) != 0 {
		t.Errorf("unfinished run has a report")
	}

	finished := started.Add(10 * time.Minute)
	if err := c.FinishRun(ctx, "run-1", finished, []byte(`{"run_id":"run-1"}`)); err != nil {
		t.Fatal(err)
	}
	got, err = c.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.FinishedAt.Equal(finished) || len(got.ReportJSON) == 0 {
		t.Errorf("finish not persisted: %+v", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.GetRun(context.Background(), "missing"); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
	if err := c.FinishRun(context.Background(), "missing", time.Now(), nil); !errors.Is(err, store.ErrRunNotFound) {
		t.Errorf("finish err = %v, want ErrRunNotFound", err)
	}
}

func TestLatestRunOrdering(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := store.RunRecord{ID: id, Title: id, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := c.CreateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := c.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "run-c" {
		t.Errorf("latest = %s, want run-c", latest.ID)
	}
	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 || runs[0].ID != "run-c" {
		t.Errorf("list order wrong: %+v", runs)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	run := store.RunRecord{ID: "run-1", Title: "t", StartedAt: time.Now().UTC()}
	if err := c.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	reviews := []store.SceneReviewRecord{
		{SceneID: 1, AgentID: "horror_fan", Reaction: "tense", Emotion: "dread", Intensity: 0.8, Engagement: 0.9},
		{SceneID: 1, AgentID: "indie_critic", Reaction: "fine", Emotion: "interest", Intensity: 0.4, Engagement: 0.6},
	}
	if err := c.SaveReviews(ctx, "run-1", reviews); err != nil {
		t.Fatal(err)
	}
	gotReviews, err := c.GetReviews(ctx, "run-1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotReviews) != 2 || gotReviews[0].AgentID != "horror_fan" {
		t.Errorf("reviews = %+v", gotReviews)
	}

	entities := []store.EntityRecord{
		{EntityID: "CHARACTER_001", Name: "SARAH", EntityType: "character", Importance: 0.9, Payload: []byte(`{"id":"CHARACTER_001"}`)},
		{EntityID: "OBJECT_001", Name: "THE CROWBAR", EntityType: "object", Importance: 0.3, Payload: []byte(`{}`)},
	}
	if err := c.SaveEntities(ctx, "run-1", entities); err != nil {
		t.Fatal(err)
	}
	gotEntities, err := c.GetEntities(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(gotEntities) != 2 || gotEntities[0].EntityID != "CHARACTER_001" {
		t.Errorf("entities sorted by importance expected, got %+v", gotEntities)
	}

	questions := []store.QuestionRecord{
		{QuestionID: "Q_001", Text: "open one", Status: "open", RaisedScene: 1, Payload: []byte(`{}`)},
		{QuestionID: "Q_002", Text: "answered one", Status: "answered", RaisedScene: 2, Payload: []byte(`{}`)},
	}
	if err := c.SaveQuestions(ctx, "run-1", questions); err != nil {
		t.Fatal(err)
	}
	open, err := c.GetQuestions(ctx, "run-1", "open")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].QuestionID != "Q_001" {
		t.Errorf("status filter failed: %+v", open)
	}

	digests := []store.DigestRecord{{SceneID: 1, Heading: "INT. ROOM - DAY", Summary: "s", Payload: []byte(`{}`)}}
	if err := c.SaveDigests(ctx, "run-1", digests); err != nil {
		t.Fatal(err)
	}
	gotDigests, err := c.GetDigests(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(gotDigests) != 1 || gotDigests[0].Heading != "INT. ROOM - DAY" {
		t.Errorf("digests = %+v", gotDigests)
	}

	emotions := []store.EmotionRecord{
		{AgentID: "horror_fan", SceneID: 1, Kind: "state", Seq: 0, Payload: []byte(`{}`)},
		{AgentID: "horror_fan", SceneID: 1, Kind: "revision", Seq: 1, Payload: []byte(`{}`)},
	}
	if err := c.SaveEmotions(ctx, "run-1", emotions); err != nil {
		t.Fatal(err)
	}
	gotEmotions, err := c.GetEmotions(ctx, "run-1", "horror_fan")
	if err != nil {
		t.Fatal(err)
	}
	if len(gotEmotions) != 2 || gotEmotions[1].Kind != "revision" {
		t.Errorf("emotions = %+v", gotEmotions)
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sqlite://:memory:", ":memory:"},
		{":memory:", ":memory:"},
		{"sqlite://tableread.db", "./tableread.db"},
		{"tableread.db", "./tableread.db"},
		{"/var/lib/tableread.db", "/var/lib/tableread.db"},
		{"sqlite://data.db?cache=shared", "./data.db?cache=shared"},
	}
	for _, tc := range cases {
		got, err := parseDSN(tc.in)
		if err != nil {
			t.Errorf("parseDSN(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := parseDSN(""); err == nil {
		t.Error("empty DSN should fail")
	}
}
