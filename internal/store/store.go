package store

import (
	"context"
	"errors"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	CreateRun(ctx context.Context, run RunRecord) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, reportJSON []byte) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	LatestRun(ctx context.Context) (*RunRecord, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)

	SaveReviews(ctx context.Context, runID string, reviews []SceneReviewRecord) error
	SaveEntities(ctx context.Context, runID string, entities []EntityRecord) error
	SaveQuestions(ctx context.Context, runID string, questions []QuestionRecord) error
	SaveDigests(ctx context.Context, runID string, digests []DigestRecord) error
	SaveEmotions(ctx context.Context, runID string, emotions []EmotionRecord) error

	GetReviews(ctx context.Context, runID string, sceneID int) ([]SceneReviewRecord, error)
	GetEntities(ctx context.Context, runID string) ([]EntityRecord, error)
	GetQuestions(ctx context.Context, runID, status string) ([]QuestionRecord, error)
	GetDigests(ctx context.Context, runID string) ([]DigestRecord, error)
	GetEmotions(ctx context.Context, runID, agentID string) ([]EmotionRecord, error)
}
