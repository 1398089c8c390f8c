package store

import "time"

// RunRecord is one table read of one script. ReportJSON holds the rendered
// review.Report; it is empty until the run finishes.
type RunRecord struct {
	ID         string
	Title      string
	Reviewers  []string
	SceneCount int
	StartedAt  time.Time
	FinishedAt time.Time
	ReportJSON []byte
}

type SceneReviewRecord struct {
	RunID      string
	SceneID    int
	AgentID    string
	Reaction   string
	Notes      string
	Emotion    string
	Intensity  float64
	Engagement float64
}

// EntityRecord, QuestionRecord, DigestRecord, and EmotionRecord keep the hot
// columns queryable and the full structure as a JSON payload, the way the
// registry and ledgers represent them in memory.
type EntityRecord struct {
	RunID      string
	EntityID   string
	Name       string
	EntityType string
	Importance float64
	Payload    []byte
}

type QuestionRecord struct {
	RunID       string
	QuestionID  string
	Text        string
	Status      string
	RaisedBy    string
	RaisedScene int
	Importance  float64
	Payload     []byte
}

type DigestRecord struct {
	RunID      string
	SceneID    int
	Heading    string
	Summary    string
	Importance float64
	Payload    []byte
}

// EmotionRecord is one event from the emotional log: Kind is "state" for
// the write-once original and "revision" for each later reinterpretation.
type EmotionRecord struct {
	RunID   string
	AgentID string
	SceneID int
	Kind    string
	Seq     int
	Payload []byte
}
