package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"tableread/internal/memory"
)

func queryDigestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest <scene>",
		Short: "Show the compressed digest for a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("scene must be a number: %s", args[0])
			}
			return runQueryDigest(cmd, sceneID)
		},
	}
}

func runQueryDigest(cmd *cobra.Command, sceneID int) error {
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
	records, err := db.GetDigests(ctx, runID)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if rec.SceneID != sceneID {
			continue
		}
		var digest memory.Digest
		if err := json.Unmarshal(rec.Payload, &digest); err != nil {
			return fmt.Errorf("decoding digest: %w", err)
		}
		printDigest(digest)
		return nil
	}

	return fmt.Errorf("no digest for scene %d; it may never have left the recent buffer", sceneID)
}

func printDigest(d memory.Digest) {
	fmt.Fprintf(os.Stdout, "Scene %d: %s (importance %.2f)\n", d.SceneID, d.Heading, d.Importance)
	fmt.Fprintln(os.Stdout, d.Summary)
	if len(d.PlotBeats) > 0 {
		fmt.Fprintln(os.Stdout, "Beats:")
		for _, beat := range d.PlotBeats {
			fmt.Fprintf(os.Stdout, "  - %s\n", beat)
		}
	}
	if len(d.KeyEntities) > 0 {
		fmt.Fprintf(os.Stdout, "Characters: %s\n", joinValues(d.KeyEntities))
	}
	if len(d.EmotionalSnapshot) > 0 {
		agents := make([]string, 0, len(d.EmotionalSnapshot))
		for agent := range d.EmotionalSnapshot {
			agents = append(agents, agent)
		}
		sort.Strings(agents)
		fmt.Fprintln(os.Stdout, "Felt at the time:")
		for _, agent := range agents {
			state := d.EmotionalSnapshot[agent]
			fmt.Fprintf(os.Stdout, "  %s: %s (%.2f)\n", agent, state.PrimaryEmotion, state.Intensity)
		}
	}
	for _, rs := range d.RevisedSnapshots {
		fmt.Fprintf(os.Stdout, "Felt in hindsight (after scene %d):\n", rs.TriggerScene)
		fmt.Fprintf(os.Stdout, "  %s: %s (%.2f)\n", rs.AgentID, rs.State.PrimaryEmotion, rs.State.Intensity)
	}
	for _, note := range d.RevisionNotes {
		fmt.Fprintf(os.Stdout, "Revisited: %s\n", note)
	}
}
