package review

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Report is the final artifact of a run: every reviewer's reaction per
// scene, per-reviewer averages, and anything that could not be completed.
type Report struct {
	RunID     string    `json:"run_id"`
	Title     string    `json:"title"`
	Reviewers []string  `json:"reviewers"`
	StartedAt time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Scenes     []SceneResult      `json:"scenes"`
	Summaries  []ReviewerSummary  `json:"summaries"`
	Incomplete []IncompleteReview `json:"incomplete,omitempty"`
}

type SceneResult struct {
	SceneID int           `json:"scene_id"`
	Heading string        `json:"heading"`
	Reviews []AgentReview `json:"reviews"`
}

type AgentReview struct {
	AgentID    string  `json:"agent_id"`
	Reaction   string  `json:"reaction"`
	Notes      string  `json:"notes,omitempty"`
	Emotion    string  `json:"emotion"`
	Intensity  float64 `json:"intensity"`
	Engagement float64 `json:"engagement"`
}

type ReviewerSummary struct {
	AgentID       string  `json:"agent_id"`
	ScenesReviewed int     `json:"scenes_reviewed"`
	AvgIntensity  float64 `json:"avg_intensity"`
	AvgEngagement float64 `json:"avg_engagement"`
	PeakScene     int     `json:"peak_scene"`
}

type IncompleteReview struct {
	AgentID string `json:"agent_id"`
	SceneID int    `json:"scene_id"`
	Reason  string `json:"reason"`
	Raw     string `json:"raw,omitempty"`
}

// finishReport derives the per-reviewer summaries from the scene results.
func (r *Runner) finishReport(report *Report) {
	type acc struct {
		scenes     int
		intensity  float64
		engagement float64
		peakScene  int
		peak       float64
	}
	byAgent := make(map[string]*acc)
	for _, sc := range report.Scenes {
		for _, rev := range sc.Reviews {
			a := byAgent[rev.AgentID]
			if a == nil {
				a = &acc{}
				byAgent[rev.AgentID] = a
			}
			a.scenes++
			a.intensity += rev.Intensity
			a.engagement += rev.Engagement
			if rev.Intensity > a.peak {
				a.peak = rev.Intensity
				a.peakScene = sc.SceneID
			}
		}
	}

	for _, id := range report.Reviewers {
		a := byAgent[id]
		if a == nil || a.scenes == 0 {
			continue
		}
		report.Summaries = append(report.Summaries, ReviewerSummary{
			AgentID:        id,
			ScenesReviewed: a.scenes,
			AvgIntensity:   a.intensity / float64(a.scenes),
			AvgEngagement:  a.engagement / float64(a.scenes),
			PeakScene:      a.peakScene,
		})
	}
	sort.Slice(report.Summaries, func(i, j int) bool {
		return report.Summaries[i].AgentID < report.Summaries[j].AgentID
	})
}

// Render formats the report for terminal output.
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table read of %q (run %s)\n", r.Title, r.RunID)
	fmt.Fprintf(&b, "%d scenes, %d reviewers, took %s\n\n", len(r.Scenes), len(r.Reviewers), r.FinishedAt.Sub(r.StartedAt).Round(time.Second))

	for _, s := range r.Summaries {
		fmt.Fprintf(&b, "%-18s reviewed %d scenes, avg intensity %.2f, avg engagement %.2f, peak at scene %d\n",
			s.AgentID, s.ScenesReviewed, s.AvgIntensity, s.AvgEngagement, s.PeakScene)
	}
	if len(r.Incomplete) > 0 {
		fmt.Fprintf(&b, "\n%d reviews could not be completed:\n", len(r.Incomplete))
		for _, inc := range r.Incomplete {
			fmt.Fprintf(&b, "- %s at scene %d: %s\n", inc.AgentID, inc.SceneID, inc.Reason)
		}
	}
	return b.String()
}
