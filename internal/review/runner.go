package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tableread/internal/memory"
	"tableread/internal/screenplay"
)

// Runner drives a full table read: every scene in order, every reviewer
// concurrently within a scene, all responses ingested before the next scene
// starts.
type Runner struct {
	engine *memory.Engine
	caller Caller
	roster []Profile
	ingest *Ingestor
	log    *zap.Logger
}

func NewRunner(engine *memory.Engine, caller Caller, roster []Profile, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		engine: engine,
		caller: caller,
		roster: roster,
		ingest: NewIngestor(engine, log),
		log:    log,
	}
}

type agentResult struct {
	profile  Profile
	response AgentResponse
	raw      string
	err      error
}

func (r *Runner) Run(ctx context.Context, script *screenplay.Screenplay) (*Report, error) {
	if len(script.Scenes) == 0 {
		return nil, screenplay.ErrNoScenes
	}
	if len(r.roster) == 0 {
		return nil, fmt.Errorf("no reviewers configured")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Title:     script.Title,
		Reviewers: reviewerIDs(r.roster),
		StartedAt: time.Now(),
	}

	for i := range script.Scenes {
		scene := script.Scenes[i]
		if err := r.engine.BeginScene(scene); err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.ID, err)
		}
		r.log.Info("reviewing scene",
			zap.Int("scene", scene.ID),
			zap.String("heading", scene.Heading),
			zap.Int("reviewers", len(r.roster)))

		results, err := r.reviewScene(ctx, scene)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.ID, err)
		}

		// Ingest serially in roster order so the ledger's question IDs do not
		// depend on network timing.
		sceneResult := SceneResult{SceneID: scene.ID, Heading: scene.Heading}
		for _, res := range results {
			if res.err != nil {
				report.Incomplete = append(report.Incomplete, IncompleteReview{
					AgentID: res.profile.ID,
					SceneID: scene.ID,
					Reason:  res.err.Error(),
					Raw:     res.raw,
				})
				r.log.Warn("review skipped",
					zap.String("agent", res.profile.ID),
					zap.Int("scene", scene.ID),
					zap.Error(res.err))
				continue
			}
			r.ingest.Ingest(res.profile.ID, scene.ID, res.response)
			sceneResult.Reviews = append(sceneResult.Reviews, AgentReview{
				AgentID:  res.profile.ID,
				Reaction: res.response.Reaction,
				Notes:    res.response.Notes,
				Emotion:  res.response.EmotionalState.PrimaryEmotion,
				Intensity: res.response.EmotionalState.Intensity,
				Engagement: res.response.EmotionalState.Engagement,
			})
		}
		report.Scenes = append(report.Scenes, sceneResult)

		if err := r.engine.EndScene(scene); err != nil {
			return nil, fmt.Errorf("scene %d: %w", scene.ID, err)
		}
	}

	report.FinishedAt = time.Now()
	r.finishReport(report)
	return report, nil
}

// reviewScene fans one call per reviewer out and waits for all of them.
// Individual failures are carried in the result, not returned; only context
// cancellation aborts the scene.
func (r *Runner) reviewScene(ctx context.Context, scene screenplay.Scene) ([]agentResult, error) {
	results := make([]agentResult, len(r.roster))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, profile := range r.roster {
		i, profile := i, profile
		g.Go(func() error {
			prompt := r.engine.ContextFor(profile.ID, scene).Render()
			resp, raw, err := r.callWithCorrection(gctx, profile, prompt)
			mu.Lock()
			results[i] = agentResult{profile: profile, response: resp, raw: raw, err: err}
			mu.Unlock()
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// callWithCorrection retries a malformed response once with an explicit
// correction appended; a second failure is final and the raw output is kept.
func (r *Runner) callWithCorrection(ctx context.Context, profile Profile, prompt string) (AgentResponse, string, error) {
	resp, raw, err := r.caller.Review(ctx, profile, prompt)
	var malformed *MalformedOutputError
	if err == nil || !errors.As(err, &malformed) {
		return resp, raw, err
	}

	r.log.Warn("malformed output, retrying once", zap.String("agent", profile.ID))
	corrected := prompt + "\n\nYour previous reply was not valid JSON matching the required schema. Reply again with only the JSON object."
	return r.caller.Review(ctx, profile, corrected)
}

func reviewerIDs(roster []Profile) []string {
	out := make([]string, 0, len(roster))
	for _, p := range roster {
		out = append(out, p.ID)
	}
	return out
}
