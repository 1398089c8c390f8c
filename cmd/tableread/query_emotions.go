package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tableread/internal/memory"
)

func queryEmotionsCmd() *cobra.Command {
	var sceneID int
	cmd := &cobra.Command{
		Use:   "emotions <agent>",
		Short: "Show a reviewer's emotional log, originals and revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryEmotions(cmd, args[0], sceneID)
		},
	}
	cmd.Flags().IntVar(&sceneID, "scene", 0, "Only show events for one scene")
	return cmd
}

func runQueryEmotions(cmd *cobra.Command, agentID string, sceneID int) error {
	ctx := context.Background()

	db, err := openQueryStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	runID, err := resolveRun(ctx, db, cmd)
	if err != nil {
		return err
	}
	records, err := db.GetEmotions(ctx, runID, agentID)
	if err != nil {
		return err
	}

	shown := 0
	for _, rec := range records {
		if sceneID > 0 && rec.SceneID != sceneID {
			continue
		}
		switch rec.Kind {
		case "state":
			var state memory.EmotionalState
			if err := json.Unmarshal(rec.Payload, &state); err != nil {
				return fmt.Errorf("decoding emotional state: %w", err)
			}
			fmt.Fprintf(os.Stdout, "scene %d: %s (intensity %.2f, engagement %.2f)\n",
				state.SceneID, state.PrimaryEmotion, state.Intensity, state.Engagement)
			if state.CumulativeFeelings != "" {
				fmt.Fprintf(os.Stdout, "  %s\n", state.CumulativeFeelings)
			}
		case "revision":
			var rev memory.Revision
			if err := json.Unmarshal(rec.Payload, &rev); err != nil {
				return fmt.Errorf("decoding revision: %w", err)
			}
			fmt.Fprintf(os.Stdout, "scene %d revised after scene %d: now %s (%.2f)\n",
				rev.TargetScene, rev.TriggerScene, rev.RevisedState.PrimaryEmotion, rev.RevisedState.Intensity)
			if rev.Reason != "" {
				fmt.Fprintf(os.Stdout, "  %s\n", rev.Reason)
			}
		}
		shown++
	}

	if shown == 0 {
		fmt.Fprintf(os.Stdout, "No emotional history for %q.\n", agentID)
	}
	return nil
}
